package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/progress"
	"github.com/forceu/uploadrelay/internal/ratelimiter"
	"github.com/forceu/uploadrelay/internal/registry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Chat sends messages and answers button presses
type Chat interface {
	messenger.Messenger
	AnswerCallback(ctx context.Context, callbackId, text string, showAlert bool) error
}

// Dispatcher starts the worker job for a confirmed session and returns the ref it runs on
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.Payload) (string, error)
}

// Settings configure the front-end
type Settings struct {
	// IsAuthorized returns true if the user may use the bot
	IsAuthorized func(userId string) bool
	// AnimationInterval is the time between two frames of the initialising animation
	AnimationInterval time.Duration
	// AnimationMaxUpdates is the number of frames after which the animation stops
	AnimationMaxUpdates int
}

// Bot handles the updates of the chat. Updates are processed one after another
type Bot struct {
	chat            Chat
	registry        *registry.Registry
	dispatcher      Dispatcher
	settings        Settings
	now             func() time.Time
	allowNewSession func(userId string) bool
	allowReply      func(userId string) bool
	tasks           context.Context
	running         sync.WaitGroup
}

// New returns a bot. Animations started by the bot end at the latest when ctx is done
func New(ctx context.Context, chat Chat, sessions *registry.Registry, dispatcher Dispatcher, settings Settings) *Bot {
	if settings.IsAuthorized == nil {
		settings.IsAuthorized = func(string) bool { return true }
	}
	if settings.AnimationInterval <= 0 {
		settings.AnimationInterval = time.Second
	}
	if settings.AnimationMaxUpdates < 1 {
		settings.AnimationMaxUpdates = 60
	}
	return &Bot{
		chat:            chat,
		registry:        sessions,
		dispatcher:      dispatcher,
		settings:        settings,
		now:             time.Now,
		allowNewSession: ratelimiter.IsAllowedNewSession,
		allowReply:      ratelimiter.IsAllowedUnauthorizedReply,
		tasks:           ctx,
	}
}

// Poll handles updates until ctx is done or the channel is closed
func (b *Bot) Poll(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// Wait blocks until all animations started by the bot have ended
func (b *Bot) Wait() {
	b.running.Wait()
}

// HandleUpdate processes a single message or button press. A panic is logged and does not stop the bot
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogWarning(fmt.Sprintf("Could not handle update %d: %v", update.UpdateID, r))
		}
	}()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	userId := strconv.FormatInt(msg.From.ID, 10)
	command := strings.ToLower(msg.Command())
	if !b.settings.IsAuthorized(userId) {
		logging.LogUnauthorized(userId, command)
		if b.allowReply(userId) {
			b.reply(ctx, msg.Chat.ID, textUnauthorized)
		}
		return
	}

	switch {
	case command == "start":
		b.reply(ctx, msg.Chat.ID, textWelcome())
	case command == "help":
		b.reply(ctx, msg.Chat.ID, textHelp())
	case command == "status":
		b.showStatus(ctx, msg.Chat.ID, userId)
	case command == "cancel":
		b.cancelByCommand(ctx, msg.Chat.ID, userId, msg.CommandArguments())
	case strings.HasPrefix(command, "cancel_"):
		b.cancelByCommand(ctx, msg.Chat.ID, userId, strings.TrimPrefix(command, "cancel_"))
	default:
		service, ok := models.ParseService(command)
		if !ok {
			b.reply(ctx, msg.Chat.ID, textUnknownCommand)
			return
		}
		b.createSession(ctx, msg, userId, service)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	userId := strconv.FormatInt(query.From.ID, 10)
	if !b.settings.IsAuthorized(userId) {
		logging.LogUnauthorized(userId, query.Data)
		b.answer(ctx, query.ID, textUnauthorized, true)
		return
	}

	var isConfirm bool
	var sessionId string
	switch {
	case strings.HasPrefix(query.Data, progress.PrefixConfirm):
		isConfirm = true
		sessionId = strings.TrimPrefix(query.Data, progress.PrefixConfirm)
	case strings.HasPrefix(query.Data, progress.PrefixCancel):
		sessionId = strings.TrimPrefix(query.Data, progress.PrefixCancel)
	default:
		b.answer(ctx, query.ID, "", false)
		return
	}
	if query.Message == nil || query.Message.Chat == nil {
		b.answer(ctx, query.ID, textSessionExpired, true)
		return
	}
	chatId := query.Message.Chat.ID
	messageId := query.Message.MessageID

	session, err := b.registry.Get(sessionId)
	if err != nil {
		b.answer(ctx, query.ID, "", false)
		b.edit(ctx, chatId, messageId, textSessionExpired)
		return
	}
	if session.Owner != userId {
		b.answer(ctx, query.ID, textNotOwner, true)
		return
	}
	b.answer(ctx, query.ID, "", false)
	if isConfirm {
		b.confirm(ctx, userId, sessionId, chatId, messageId)
		return
	}
	b.cancelByButton(ctx, userId, session, chatId, messageId)
}

func (b *Bot) reply(ctx context.Context, chatId int64, text string) {
	_, err := b.chat.Send(ctx, chatId, text, nil)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not send message to chat %d: %v", chatId, err))
	}
}

func (b *Bot) edit(ctx context.Context, chatId int64, messageId int, text string) {
	err := b.chat.Edit(ctx, chatId, messageId, text, nil)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not edit message %d in chat %d: %v", messageId, chatId, err))
	}
}

func (b *Bot) answer(ctx context.Context, callbackId, text string, showAlert bool) {
	err := b.chat.AnswerCallback(ctx, callbackId, text, showAlert)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Could not answer callback query: %v", err))
	}
}
