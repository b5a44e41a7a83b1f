package messenger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/forceu/uploadrelay/internal/helper"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// apiTimeout has to be longer than the long polling timeout of getUpdates
const apiTimeout = 2 * time.Minute

// Messenger sends and edits status messages
type Messenger interface {
	// Send sends a new message and returns its id
	Send(ctx context.Context, chatId int64, text string, buttons []Button) (int, error)
	// Edit replaces the content of a message. Unchanged content is not an error
	Edit(ctx context.Context, chatId int64, messageId int, text string, buttons []Button) error
	// Delete removes a message
	Delete(ctx context.Context, chatId int64, messageId int) error
}

// Button is an inline button. Data is sent back as callback query when pressed
type Button struct {
	Text string
	Data string
}

// Telegram is the Messenger for the Telegram Bot API. Edits are rate limited per chat, as
// the API rejects frequent edits of the same message
type Telegram struct {
	bot            *tgbotapi.BotAPI
	editsPerSecond int
	limiters       map[int64]*rate.Limiter
	mutex          sync.Mutex
}

// Connect logs in to the Bot API. An empty endpoint uses the official server
func Connect(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("no bot token provided")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return tgbotapi.NewBotAPIWithClient(token, endpoint, helper.NewHttpClient(apiTimeout, apiTimeout))
}

// NewTelegram returns a Messenger using the bot
func NewTelegram(bot *tgbotapi.BotAPI, editsPerSecond int) *Telegram {
	if editsPerSecond < 1 {
		editsPerSecond = 1
	}
	return &Telegram{
		bot:            bot,
		editsPerSecond: editsPerSecond,
		limiters:       make(map[int64]*rate.Limiter),
	}
}

// Bot returns the underlying API client
func (t *Telegram) Bot() *tgbotapi.BotAPI {
	return t.bot
}

func (t *Telegram) getLimiter(chatId int64) *rate.Limiter {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	limiter, ok := t.limiters[chatId]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(t.editsPerSecond), 1)
		t.limiters[chatId] = limiter
	}
	return limiter
}

// Send sends a new HTML formatted message
func (t *Telegram) Send(ctx context.Context, chatId int64, text string, buttons []Button) (int, error) {
	err := t.getLimiter(chatId).Wait(ctx)
	if err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if len(buttons) > 0 {
		msg.ReplyMarkup = toKeyboard(buttons)
	}
	result, err := t.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// Edit replaces the content of a message. Unchanged content is not an error
func (t *Telegram) Edit(ctx context.Context, chatId int64, messageId int, text string, buttons []Button) error {
	err := t.getLimiter(chatId).Wait(ctx)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatId, messageId, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if len(buttons) > 0 {
		keyboard := toKeyboard(buttons)
		edit.ReplyMarkup = &keyboard
	}
	_, err = t.bot.Request(edit)
	if IsNotModified(err) {
		return nil
	}
	return err
}

// Delete removes a message
func (t *Telegram) Delete(ctx context.Context, chatId int64, messageId int) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatId, messageId))
	return err
}

// AnswerCallback confirms a pressed inline button. A non-empty text is shown to the user,
// as alert if showAlert is set
func (t *Telegram) AnswerCallback(ctx context.Context, callbackId, text string, showAlert bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	callback := tgbotapi.NewCallback(callbackId, text)
	callback.ShowAlert = showAlert
	_, err := t.bot.Request(callback)
	return err
}

// IsNotModified returns true if the error was caused by editing a message with identical content
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func toKeyboard(buttons []Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
