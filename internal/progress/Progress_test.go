//go:build test

package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/test"
	"github.com/forceu/uploadrelay/internal/test/testmessenger"
)

func TestPercentage(t *testing.T) {
	test.IsEqualString(t, FormatPercentage(Percentage(0, 0)), "0%")
	test.IsEqualString(t, FormatPercentage(Percentage(50, 0)), "0%")
	test.IsEqualString(t, FormatPercentage(Percentage(-5, 100)), "0%")
	test.IsEqualString(t, FormatPercentage(Percentage(1, 3)), "33.3%")
	test.IsEqualString(t, FormatPercentage(Percentage(50, 100)), "50%")
	test.IsEqualString(t, FormatPercentage(Percentage(100, 100)), "100%")
	test.IsEqualString(t, FormatPercentage(Percentage(150, 100)), "100%")
	test.IsEqualString(t, FormatPercentage(-1), "0%")
}

func TestProgressBar(t *testing.T) {
	test.IsEqualString(t, ProgressBar(0), "░░░░░░░░░░")
	test.IsEqualString(t, ProgressBar(9.9), "░░░░░░░░░░")
	test.IsEqualString(t, ProgressBar(10), "█░░░░░░░░░")
	test.IsEqualString(t, ProgressBar(55), "█████░░░░░")
	test.IsEqualString(t, ProgressBar(99.9), "█████████░")
	test.IsEqualString(t, ProgressBar(100), "██████████")
	test.IsEqualString(t, ProgressBar(250), "██████████")
	test.IsEqualString(t, ProgressBar(-20), "░░░░░░░░░░")
	test.IsEqualString(t, BarWithPercentage(0), "[░░░░░░░░░░] 0%")
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestTracker(interval time.Duration) (*Tracker, *fakeClock, *[]Snapshot) {
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	rendered := make([]Snapshot, 0)
	tracker := NewTracker(interval, func(s Snapshot) {
		rendered = append(rendered, s)
	})
	tracker.now = clock.now
	return tracker, clock, &rendered
}

func TestTrackerThrottle(t *testing.T) {
	tracker, clock, rendered := newTestTracker(5 * time.Second)
	test.IsEqualBool(t, tracker.Update(0, 100), true)
	clock.advance(2 * time.Second)
	test.IsEqualBool(t, tracker.Update(20, 100), false)
	clock.advance(4 * time.Second)
	test.IsEqualBool(t, tracker.Update(60, 100), true)
	last := (*rendered)[len(*rendered)-1]
	test.IsEqualInt64(t, last.Current, 60)
	test.IsEqualBool(t, last.Speed == 10, true)
	test.IsEqualBool(t, last.Eta == 4*time.Second, true)

	clock.advance(time.Second)
	test.IsEqualBool(t, tracker.Update(100, 100), true)
	test.IsEqualInt(t, len(*rendered), 3)
	last = (*rendered)[2]
	test.IsEqualBool(t, last.Percentage == 100, true)
	test.IsEqualBool(t, last.Eta == 0, true)

	clock.advance(time.Second)
	test.IsEqualBool(t, tracker.Update(100, 100), false)
	tracker.Flush()
	test.IsEqualInt(t, len(*rendered), 3)
}

func TestTrackerFlush(t *testing.T) {
	tracker, clock, rendered := newTestTracker(5 * time.Second)
	tracker.Flush()
	test.IsEqualInt(t, len(*rendered), 0)
	tracker.Update(10, 100)
	clock.advance(time.Second)
	tracker.Update(30, 100)
	test.IsEqualInt(t, len(*rendered), 1)
	tracker.Flush()
	test.IsEqualInt(t, len(*rendered), 2)
	test.IsEqualInt64(t, (*rendered)[1].Current, 30)
	tracker.Flush()
	test.IsEqualInt(t, len(*rendered), 2)
}

func TestTrackerZeroValues(t *testing.T) {
	tracker, clock, rendered := newTestTracker(time.Second)
	tracker.Update(0, 0)
	snapshot := (*rendered)[0]
	test.IsEqualString(t, FormatPercentage(snapshot.Percentage), "0%")
	test.IsEqualBool(t, snapshot.Speed == 0, true)
	test.IsEqualBool(t, snapshot.Eta == 0, true)

	clock.advance(2 * time.Second)
	tracker.Update(0, 100)
	snapshot = (*rendered)[1]
	test.IsEqualBool(t, snapshot.Speed == 0, true)
	test.IsEqualBool(t, snapshot.Eta == 0, true)

	clock.advance(2 * time.Second)
	tracker.Update(500, 0)
	test.IsEqualString(t, FormatPercentage((*rendered)[2].Percentage), "0%")
}

func TestTrackerConsole(t *testing.T) {
	tracker, clock, _ := newTestTracker(time.Second)
	var output bytes.Buffer
	tracker.MirrorToConsole(&output, "test.bin")
	tracker.Update(0, 2048)
	clock.advance(time.Second)
	tracker.Update(2048, 2048)
	test.ContainsString(t, output.String(), "test.bin")

	unknown, _, _ := newTestTracker(time.Second)
	var spinnerOutput bytes.Buffer
	unknown.MirrorToConsole(&spinnerOutput, "unknown.bin")
	unknown.Update(100, 0)
	unknown.Update(200, 4096)
}

func getTestSession() models.UploadSession {
	return models.UploadSession{
		Id:        "abc12345",
		Owner:     "42",
		Service:   models.ServicePixeldrain,
		Status:    models.StatusProcessing,
		CreatedAt: time.Unix(1700000000, 0),
		ChatId:    100,
		MessageId: 7,
		Files: []models.FileRef{
			{Kind: models.KindDocument, FileId: "f1", FileName: "first <1>.zip", FileSize: 1024 * 1024 * 3},
			{Kind: models.KindLink, MessageId: 5, Chat: models.ChatRef{Username: "@channel"}},
		},
	}
}

func TestAnimationMaxUpdates(t *testing.T) {
	recorder := &testmessenger.Recorder{}
	animation := Animation{
		Messenger:  recorder,
		Session:    getTestSession(),
		Interval:   time.Millisecond,
		MaxUpdates: 4,
	}
	sent := animation.Run(context.Background())
	test.IsEqualInt(t, sent, 4)
	texts := recorder.EditTexts()
	test.IsEqualInt(t, len(texts), 4)
	test.ContainsString(t, texts[0], "Initializing..\n")
	test.ContainsString(t, texts[1], "Initializing...\n")
	test.ContainsString(t, texts[2], "Initializing.\n")
	test.ContainsString(t, texts[0], "[░░░░░░░░░░] 0%")
	test.IsEqualInt(t, recorder.Edits[0].MessageId, 7)
	test.IsEqualString(t, recorder.Edits[0].Buttons[0].Data, "cancel_abc12345")
}

func TestAnimationStopsWhenInactive(t *testing.T) {
	recorder := &testmessenger.Recorder{}
	calls := 0
	animation := Animation{
		Messenger:  recorder,
		Session:    getTestSession(),
		Interval:   time.Millisecond,
		MaxUpdates: 60,
		IsActive: func() bool {
			calls++
			return calls <= 2
		},
	}
	test.IsEqualInt(t, animation.Run(context.Background()), 2)
	test.IsEqualInt(t, recorder.EditCount(), 2)
}

func TestAnimationIgnoresErrors(t *testing.T) {
	recorder := &testmessenger.Recorder{FailEdit: true}
	animation := Animation{
		Messenger:  recorder,
		Session:    getTestSession(),
		Interval:   time.Millisecond,
		MaxUpdates: 3,
	}
	test.IsEqualInt(t, animation.Run(context.Background()), 0)
}

func TestAnimateCancel(t *testing.T) {
	recorder := &testmessenger.Recorder{}
	cancel, done := Animate(context.Background(), Animation{
		Messenger:  recorder,
		Session:    getTestSession(),
		Interval:   time.Hour,
		MaxUpdates: 60,
	})
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("animation did not stop")
	}
	test.IsEqualInt(t, recorder.EditCount(), 0)
}

func TestRenderConfirmation(t *testing.T) {
	session := getTestSession()
	text := RenderConfirmation(session, time.Date(2024, 1, 1, 13, 14, 15, 0, time.UTC))
	test.ContainsString(t, text, "<code>abc12345</code>")
	test.ContainsString(t, text, "PIXELDRAIN")
	test.ContainsString(t, text, "<b>Files:</b> 2")
	test.ContainsString(t, text, "first &lt;1&gt;.zip")
	test.ContainsString(t, text, "3.00 MB")
	test.ContainsString(t, text, "13:14:15")
	test.ContainsString(t, text, "/cancel_abc12345")

	session.Files = session.Files[1:]
	text = RenderConfirmation(session, time.Now())
	test.ContainsString(t, text, "File from Telegram link")
	test.NotContainsString(t, text, "Size")

	buttons := ConfirmButtons("abc12345")
	test.IsEqualString(t, buttons[0].Data, "confirm_abc12345")
	test.IsEqualString(t, buttons[1].Data, "cancel_abc12345")
}

func TestRenderDownloading(t *testing.T) {
	text := RenderDownloading(DownloadState{
		SessionId:  "abc12345",
		FileName:   "a&b.bin",
		FileIndex:  1,
		TotalFiles: 2,
		Progress: Snapshot{
			Current:    512 * 1024,
			Total:      1024 * 1024,
			Percentage: 50,
			Speed:      1024 * 1024,
			Eta:        1500 * time.Millisecond,
		},
	})
	test.ContainsString(t, text, "a&amp;b.bin")
	test.ContainsString(t, text, "[█████░░░░░] 50%")
	test.ContainsString(t, text, "0.50 MB / 1.00 MB")
	test.ContainsString(t, text, "1.00 MB/s")
	test.ContainsString(t, text, "<b>ETA:</b> 1s")
	test.ContainsString(t, text, "File 1/2")

	text = RenderDownloading(DownloadState{SessionId: "abc12345", FileName: "empty"})
	test.ContainsString(t, text, "] 0%")
	test.ContainsString(t, text, "<b>ETA:</b> 0s")
}

func TestRenderUploading(t *testing.T) {
	text := RenderUploading("abc12345", "file.bin", models.ServiceGofile, 2, 3)
	test.ContainsString(t, text, "GOFILE")
	test.ContainsString(t, text, "[██████████] 100%")
	test.ContainsString(t, text, "Uploading to gofile...")
	test.ContainsString(t, text, "File 2/3")
}

func TestRenderReport(t *testing.T) {
	report := models.TransferReport{
		SessionId:  "abc12345",
		Service:    models.ServicePixeldrain,
		TotalFiles: 2,
		Status:     models.StatusCompleted,
		Uploaded: []models.UploadResult{
			{FileName: "one.bin", Url: "https://pixeldrain.com/u/1"},
			{FileName: "two.bin", Url: "https://pixeldrain.com/u/2"},
		},
	}
	text := RenderReport(report)
	test.ContainsString(t, text, "Upload complete")
	test.ContainsString(t, text, "<b>Files:</b> 2/2")
	test.IsEqualBool(t, strings.Index(text, "one.bin") < strings.Index(text, "two.bin"), true)
	test.ContainsString(t, text, "<code>https://pixeldrain.com/u/2</code>")

	report.Status = models.StatusFailed
	report.Uploaded = nil
	text = RenderReport(report)
	test.ContainsString(t, text, "No files were uploaded successfully")
	test.NotContainsString(t, text, "https://")

	report.Status = models.StatusCancelled
	report.Uploaded = []models.UploadResult{{FileName: "one.bin", Url: "https://pixeldrain.com/u/1"}}
	text = RenderReport(report)
	test.ContainsString(t, text, "Upload cancelled")
	test.ContainsString(t, text, "Files processed:</b> 1/2")

	report.FatalError = strings.Repeat("x", 300)
	text = RenderReport(report)
	test.ContainsString(t, text, "Error: "+strings.Repeat("x", MaxErrorLength)+"\n")
	test.NotContainsString(t, text, strings.Repeat("x", MaxErrorLength+1))
}

func TestRenderFailures(t *testing.T) {
	text := RenderInitFailure("abc12345", errors.New("missing chat_id"))
	test.ContainsString(t, text, "Initialization error: missing chat_id")
	text = RenderInitFailure("abc12345", nil)
	test.ContainsString(t, text, "unknown error")

	text = RenderDispatchFailed("abc12345", errors.New("status 500 on ref main"))
	test.ContainsString(t, text, "Could not start upload")
	test.ContainsString(t, text, "status 500 on ref main")
	text = RenderDispatchFailed("abc12345", nil)
	test.NotContainsString(t, text, "Reason")

	text = RenderCancelled(getTestSession(), time.Now(), true)
	test.ContainsString(t, text, "before the next file")
	text = RenderCancelled(getTestSession(), time.Now(), false)
	test.NotContainsString(t, text, "before the next file")
}

func TestRenderStatusList(t *testing.T) {
	text := RenderStatusList(nil, time.Now())
	test.ContainsString(t, text, "No sessions")

	session := getTestSession()
	second := getTestSession()
	second.Id = "def67890"
	second.Status = models.StatusPending
	text = RenderStatusList([]models.UploadSession{session, second}, session.CreatedAt.Add(90*time.Second))
	test.ContainsString(t, text, "🔄 <code>abc12345</code>")
	test.ContainsString(t, text, "⏸ <code>def67890</code>")
	test.ContainsString(t, text, "Elapsed: 90s")
	test.ContainsString(t, text, "Status: processing")
	test.IsEqualInt(t, strings.Count(text, separator), 2)
}
