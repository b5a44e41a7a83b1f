package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/progress"
)

const textUnauthorized = "🚫 You are not authorized to use this bot."

const textUnknownCommand = "❓ Unknown command. Use /help to see all commands."

const textTooManyRequests = "⏳ Too many requests. Please wait a few seconds before creating another upload."

const textNoFile = "❌ <b>No file found</b>\n\n" +
	"Reply to a message containing a file with the command, " +
	"or pass one or more Telegram links after it."

const textInvalidLink = "❌ <b>Invalid link</b>\n\n" +
	"Supported formats:\n" +
	"<code>https://t.me/c/123456789/42</code>\n" +
	"<code>https://t.me/channelname/42</code>"

const textCancelUsage = "Usage: <code>/cancel_[session_id]</code>\nUse /status to list your sessions."

const textSessionNotFound = "❌ Session not found or already finished."

const textSessionExpired = "⌛ This session has expired. Please start a new upload."

const textNotOwner = "🚫 This session belongs to another user."

func textWelcome() string {
	return "👋 <b>Welcome to the upload relay bot!</b>\n\n" +
		"I move files from Telegram to a file hosting service.\n\n" +
		"<b>Supported services:</b>\n" + serviceList() +
		"\nReply to a file with one of the commands above to start.\n" +
		"Use /help for more details."
}

func textHelp() string {
	return "📖 <b>Help</b>\n\n" +
		"<b>Upload a file:</b>\n" +
		"1. Reply to a message containing a file\n" +
		"2. Send the command of the service, e.g. <code>/pixeldrain</code>\n" +
		"3. Press <b>Start upload</b> to confirm\n\n" +
		"<b>Upload from links:</b>\n" +
		"<code>/gofile https://t.me/c/123456789/42 https://t.me/channel/7</code>\n\n" +
		"<b>Services:</b>\n" + serviceList() + "\n" +
		"<b>Other commands:</b>\n" +
		"/status - show your sessions\n" +
		"/cancel_[session_id] - cancel a session\n" +
		"/help - show this message"
}

func serviceList() string {
	var b strings.Builder
	for _, service := range models.AllServices() {
		fmt.Fprintf(&b, "• /%s\n", service)
	}
	return b.String()
}

func textAlreadyFinished(status models.SessionStatus) string {
	return fmt.Sprintf("ℹ️ The session is already %s.", status)
}

func textError(err error) string {
	return "❌ " + html.EscapeString(helper.Truncate(err.Error(), progress.MaxErrorLength))
}
