package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/progress"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// createSession registers a pending session for the file of the replied message and every link passed
// as argument, then asks the owner for confirmation
func (b *Bot) createSession(ctx context.Context, msg *tgbotapi.Message, userId string, service models.Service) {
	files, errText := collectFiles(msg)
	if errText != "" {
		b.reply(ctx, msg.Chat.ID, errText)
		return
	}
	if !b.allowNewSession(userId) {
		b.reply(ctx, msg.Chat.ID, textTooManyRequests)
		return
	}
	session, err := b.registry.Create(userId, service, files)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, textError(err))
		return
	}
	messageId, err := b.chat.Send(ctx, msg.Chat.ID, progress.RenderConfirmation(session, b.now()), progress.ConfirmButtons(session.Id))
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not send confirmation of session %s: %v", session.Id, err))
		b.registry.Remove(session.Id)
		return
	}
	err = b.registry.SetStatusMessage(session.Id, userId, msg.Chat.ID, messageId)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not store status message of session %s: %v", session.Id, err))
	}
}

// collectFiles returns the referenced files or the reply explaining why none could be found
func collectFiles(msg *tgbotapi.Message) ([]models.FileRef, string) {
	files := make([]models.FileRef, 0)
	if msg.ReplyToMessage != nil {
		attachment, ok := messenger.AttachmentFromMessage(msg.ReplyToMessage)
		if ok {
			files = append(files, attachment)
		}
	}
	for _, link := range strings.Fields(msg.CommandArguments()) {
		ref, ok := models.ParseMessageLink(link)
		if !ok {
			return nil, textInvalidLink
		}
		files = append(files, ref)
	}
	if len(files) == 0 {
		return nil, textNoFile
	}
	return files, ""
}

// confirm moves the session to processing and dispatches the job. The status message shows an animation
// until the worker edits it or the session leaves processing
func (b *Bot) confirm(ctx context.Context, userId, sessionId string, chatId int64, messageId int) {
	err := b.registry.SetStatusMessage(sessionId, userId, chatId, messageId)
	if err != nil {
		b.edit(ctx, chatId, messageId, textSessionExpired)
		return
	}
	session, err := b.registry.Transition(sessionId, userId, models.StatusProcessing)
	if err != nil {
		// Pressed twice, the first press already started the job
		return
	}
	err = b.chat.Edit(ctx, chatId, messageId, progress.RenderInitializing(session, 0), progress.CancelButtons(sessionId))
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not update status message of session %s: %v", sessionId, err))
	}

	_, err = b.dispatcher.Dispatch(ctx, session.ToPayload())
	if err != nil {
		logging.LogDispatchFailed(sessionId, err)
		_, transitionErr := b.registry.Transition(sessionId, userId, models.StatusFailed)
		if transitionErr != nil {
			logging.LogWarning(fmt.Sprintf("Could not mark session %s as failed: %v", sessionId, transitionErr))
		}
		b.edit(ctx, chatId, messageId, progress.RenderDispatchFailed(sessionId, err))
		return
	}
	b.startAnimation(session)
}

func (b *Bot) startAnimation(session models.UploadSession) {
	stop, finished := progress.Animate(b.tasks, progress.Animation{
		Messenger:  b.chat,
		Session:    session,
		Interval:   b.settings.AnimationInterval,
		MaxUpdates: b.settings.AnimationMaxUpdates,
		IsActive: func() bool {
			current, err := b.registry.Get(session.Id)
			return err == nil && current.Status == models.StatusProcessing
		},
	})
	b.running.Add(1)
	go func() {
		<-finished
		b.running.Done()
	}()
	b.registry.BindTask(session.Id, stop)
}

// cancelByButton cancels the session whose status message contains the pressed button
func (b *Bot) cancelByButton(ctx context.Context, userId string, session models.UploadSession, chatId int64, messageId int) {
	cancelled, errText := b.cancel(userId, session)
	if errText != "" {
		b.edit(ctx, chatId, messageId, errText)
		return
	}
	b.edit(ctx, chatId, messageId, progress.RenderCancelled(cancelled, b.now(), session.Status == models.StatusProcessing))
}

// cancelByCommand cancels the session with the given id. The status message of the session is updated as well
func (b *Bot) cancelByCommand(ctx context.Context, chatId int64, userId, sessionId string) {
	sessionId = strings.ToLower(strings.TrimSpace(sessionId))
	if sessionId == "" {
		b.reply(ctx, chatId, textCancelUsage)
		return
	}
	session, err := b.registry.Get(sessionId)
	if err != nil {
		b.reply(ctx, chatId, textSessionNotFound)
		return
	}
	if session.Owner != userId {
		b.reply(ctx, chatId, textNotOwner)
		return
	}
	cancelled, errText := b.cancel(userId, session)
	if errText != "" {
		b.reply(ctx, chatId, errText)
		return
	}
	text := progress.RenderCancelled(cancelled, b.now(), session.Status == models.StatusProcessing)
	if cancelled.MessageId > 0 {
		b.edit(ctx, cancelled.ChatId, cancelled.MessageId, text)
	}
	b.reply(ctx, chatId, text)
}

func (b *Bot) cancel(userId string, session models.UploadSession) (models.UploadSession, string) {
	cancelled, err := b.registry.Cancel(session.Id, userId)
	switch {
	case err == nil:
		return cancelled, ""
	case errors.Is(err, models.ErrNotFound):
		return models.UploadSession{}, textSessionNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return models.UploadSession{}, textNotOwner
	case errors.Is(err, models.ErrInvalidTransition):
		return models.UploadSession{}, textAlreadyFinished(session.Status)
	default:
		logging.LogWarning(fmt.Sprintf("Could not cancel session %s: %v", session.Id, err))
		return models.UploadSession{}, textError(err)
	}
}

func (b *Bot) showStatus(ctx context.Context, chatId int64, userId string) {
	b.reply(ctx, chatId, progress.RenderStatusList(b.registry.ListByOwner(userId), b.now()))
}
