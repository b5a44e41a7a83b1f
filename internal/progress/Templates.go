package progress

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
)

// MaxErrorLength is the maximum number of characters of an error shown to the user
const MaxErrorLength = 200

const (
	// PrefixConfirm is the callback data prefix of the confirm button
	PrefixConfirm = "confirm_"
	// PrefixCancel is the callback data prefix of the cancel button and the cancel command
	PrefixCancel = "cancel_"
	separator    = "━━━━━━━━━━━━━━"
	timeFormat   = "15:04:05"
)

var dotStates = []string{".", "..", "..."}

// ConfirmButtons returns the buttons shown below the confirmation message
func ConfirmButtons(sessionId string) []messenger.Button {
	return []messenger.Button{
		{Text: "✅ Start upload", Data: PrefixConfirm + sessionId},
		{Text: "❌ Cancel", Data: PrefixCancel + sessionId},
	}
}

// CancelButtons returns the button shown while a session is processing
func CancelButtons(sessionId string) []messenger.Button {
	return []messenger.Button{{Text: "❌ Cancel", Data: PrefixCancel + sessionId}}
}

// DownloadState is the state rendered while a file is fetched
type DownloadState struct {
	SessionId  string
	FileName   string
	FileIndex  int
	TotalFiles int
	Progress   Snapshot
}

// RenderConfirmation returns the message asking the owner to confirm a new session
func RenderConfirmation(session models.UploadSession, now time.Time) string {
	var b strings.Builder
	b.WriteString("📤 <b>Confirm upload</b>\n\n")
	writeSession(&b, session.Id, "Session ID")
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n", session.Service.DisplayName())
	fmt.Fprintf(&b, "📦 <b>Files:</b> %d\n", len(session.Files))
	if len(session.Files) > 0 {
		first := session.Files[0]
		fmt.Fprintf(&b, "📄 <b>File:</b> %s\n", escape(first.DisplayName()))
		if first.FileName != "" {
			fmt.Fprintf(&b, "💾 <b>Size:</b> %s\n", helper.ToMegabytes(first.FileSize))
		}
	}
	fmt.Fprintf(&b, "⏰ <b>Time:</b> %s\n\n", now.Format(timeFormat))
	b.WriteString("⚡ Press a button to continue.\n")
	writeCancelHint(&b, session.Id)
	return b.String()
}

// RenderInitializing returns one frame of the animation shown until the worker started
func RenderInitializing(session models.UploadSession, frame int) string {
	if frame < 0 {
		frame = 0
	}
	dots := dotStates[frame%len(dotStates)]
	var b strings.Builder
	b.WriteString("🚀 <b>Upload started!</b>\n\n")
	writeSession(&b, session.Id, "Session")
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n", session.Service.DisplayName())
	fmt.Fprintf(&b, "📦 <b>Files:</b> %d\n\n", len(session.Files))
	fmt.Fprintf(&b, "⏳ <b>Status:</b> Initializing%s\n", dots)
	fmt.Fprintf(&b, "📊 <b>Progress:</b> %s\n\n", BarWithPercentage(0))
	fmt.Fprintf(&b, "🔄 Waiting for the worker to start%s\n\n", dots)
	writeCancelHint(&b, session.Id)
	return b.String()
}

// RenderDispatchFailed is shown if the job could not be started
func RenderDispatchFailed(sessionId string, err error) string {
	var b strings.Builder
	b.WriteString("❌ <b>Could not start upload</b>\n\n")
	writeSession(&b, sessionId, "Session")
	b.WriteString("\nThe worker could not be triggered.\n")
	if err != nil {
		fmt.Fprintf(&b, "Reason: %s\n", escape(helper.Truncate(err.Error(), MaxErrorLength)))
	}
	b.WriteString("Please try again or contact the admin.\n")
	return b.String()
}

// RenderCancelled is shown by the bot after the owner cancelled a session
func RenderCancelled(session models.UploadSession, now time.Time, wasProcessing bool) string {
	var b strings.Builder
	b.WriteString("❌ <b>Upload cancelled</b>\n\n")
	writeSession(&b, session.Id, "Session")
	fmt.Fprintf(&b, "⏰ %s\n", now.Format(timeFormat))
	if wasProcessing {
		b.WriteString("\nThe worker stops before the next file.\n")
	}
	return b.String()
}

// RenderDownloading returns the progress of the file currently fetched by the worker
func RenderDownloading(state DownloadState) string {
	var b strings.Builder
	b.WriteString("📥 <b>Downloading</b>\n\n")
	writeSession(&b, state.SessionId, "Session")
	fmt.Fprintf(&b, "📄 <b>File:</b> %s\n\n", escape(state.FileName))
	fmt.Fprintf(&b, "📊 <b>Progress:</b> %s\n", BarWithPercentage(state.Progress.Percentage))
	fmt.Fprintf(&b, "💾 <b>Size:</b> %s / %s\n", helper.ToMegabytes(state.Progress.Current), helper.ToMegabytes(state.Progress.Total))
	fmt.Fprintf(&b, "⚡ <b>Speed:</b> %.2f MB/s\n", state.Progress.Speed/(1024*1024))
	fmt.Fprintf(&b, "⏱ <b>ETA:</b> %ds\n", int64(state.Progress.Eta.Seconds()))
	if state.TotalFiles > 0 {
		fmt.Fprintf(&b, "\nFile %d/%d\n", state.FileIndex, state.TotalFiles)
	}
	return b.String()
}

// RenderUploading is shown while a downloaded file is uploaded to the hosting service
func RenderUploading(sessionId, fileName string, service models.Service, fileIndex, totalFiles int) string {
	var b strings.Builder
	b.WriteString("📤 <b>Uploading</b>\n\n")
	writeSession(&b, sessionId, "Session")
	fmt.Fprintf(&b, "📄 <b>File:</b> %s\n", escape(fileName))
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n\n", service.DisplayName())
	fmt.Fprintf(&b, "📊 <b>Progress:</b> %s\n", BarWithPercentage(100))
	fmt.Fprintf(&b, "⏳ Uploading to %s...\n\n", service)
	fmt.Fprintf(&b, "File %d/%d\n", fileIndex, totalFiles)
	return b.String()
}

// RenderReport returns the final message of a job
func RenderReport(report models.TransferReport) string {
	if report.FatalError != "" {
		return renderFatal(report)
	}
	switch report.Status {
	case models.StatusCancelled:
		return renderCancelledReport(report)
	case models.StatusCompleted:
		return renderCompleted(report)
	default:
		return renderFailed(report)
	}
}

// RenderInitFailure is shown if the worker could not start processing, e.g. because of a malformed payload
func RenderInitFailure(sessionId string, err error) string {
	var b strings.Builder
	b.WriteString("❌ <b>Upload failed</b>\n\n")
	writeSession(&b, sessionId, "Session")
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	fmt.Fprintf(&b, "\nInitialization error: %s\n", escape(helper.Truncate(reason, MaxErrorLength)))
	return b.String()
}

func renderCompleted(report models.TransferReport) string {
	var b strings.Builder
	b.WriteString("✅ <b>Upload complete</b>\n\n")
	writeSession(&b, report.SessionId, "Session")
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n", report.Service.DisplayName())
	fmt.Fprintf(&b, "📦 <b>Files:</b> %d/%d\n\n", len(report.Uploaded), report.TotalFiles)
	b.WriteString("📎 <b>Download links:</b>\n\n")
	for _, result := range report.Uploaded {
		fmt.Fprintf(&b, "📄 <b>%s</b>\n", escape(result.FileName))
		fmt.Fprintf(&b, "🔗 <code>%s</code>\n\n", escape(result.Url))
	}
	b.WriteString("✨ Upload completed successfully!")
	return b.String()
}

func renderFailed(report models.TransferReport) string {
	var b strings.Builder
	b.WriteString("❌ <b>Upload failed</b>\n\n")
	writeSession(&b, report.SessionId, "Session")
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n\n", report.Service.DisplayName())
	b.WriteString("No files were uploaded successfully.\n")
	b.WriteString("Check the worker logs for details.\n")
	return b.String()
}

func renderCancelledReport(report models.TransferReport) string {
	var b strings.Builder
	b.WriteString("❌ <b>Upload cancelled</b>\n\n")
	writeSession(&b, report.SessionId, "Session")
	fmt.Fprintf(&b, "📦 <b>Files processed:</b> %d/%d\n\n", len(report.Uploaded), report.TotalFiles)
	for _, result := range report.Uploaded {
		fmt.Fprintf(&b, "📄 <b>%s</b>\n", escape(result.FileName))
		fmt.Fprintf(&b, "🔗 <code>%s</code>\n\n", escape(result.Url))
	}
	b.WriteString("Upload was cancelled by the user.\n")
	return b.String()
}

func renderFatal(report models.TransferReport) string {
	var b strings.Builder
	b.WriteString("❌ <b>Upload failed</b>\n\n")
	writeSession(&b, report.SessionId, "Session")
	fmt.Fprintf(&b, "🎯 <b>Service:</b> %s\n\n", report.Service.DisplayName())
	fmt.Fprintf(&b, "Error: %s\n\n", escape(helper.Truncate(report.FatalError, MaxErrorLength)))
	b.WriteString("Check the worker logs for full details.\n")
	return b.String()
}

// RenderStatusList returns the overview of the sessions of a user
func RenderStatusList(sessions []models.UploadSession, now time.Time) string {
	if len(sessions) == 0 {
		return "📭 <b>No sessions</b>\n\n" +
			"You have no uploads in progress.\n" +
			"Use /help to see how to upload a file."
	}
	var b strings.Builder
	b.WriteString("📊 <b>Upload sessions</b>\n\n")
	for _, session := range sessions {
		fmt.Fprintf(&b, "%s <code>%s</code>\n", session.Status.Icon(), session.Id)
		fmt.Fprintf(&b, "🎯 Service: %s\n", session.Service.DisplayName())
		fmt.Fprintf(&b, "📦 Files: %d\n", len(session.Files))
		fmt.Fprintf(&b, "⏱ Status: %s\n", session.Status)
		fmt.Fprintf(&b, "⏰ Elapsed: %ds\n", int64(session.Elapsed(now).Seconds()))
		b.WriteString(separator + "\n")
	}
	b.WriteString("\n💡 Cancel: <code>/cancel_[session_id]</code>")
	return b.String()
}

func writeSession(b *strings.Builder, sessionId, label string) {
	fmt.Fprintf(b, "🆔 <b>%s:</b> <code>%s</code>\n", label, escape(sessionId))
}

func writeCancelHint(b *strings.Builder, sessionId string) {
	fmt.Fprintf(b, "💡 Cancel: <code>/cancel_%s</code>", escape(sessionId))
}

func escape(input string) string {
	return html.EscapeString(input)
}
