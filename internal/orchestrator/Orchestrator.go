package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/forceu/uploadrelay/internal/fetcher"
	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/progress"
	"github.com/forceu/uploadrelay/internal/uploader"
)

// ErrInitialization is returned if the job cannot start, e.g. because of a malformed payload.
// No file is processed in this case
var ErrInitialization = errors.New("initialization failed")

// finalReportTimeout is the time allowed for sending the final report, even if the job was interrupted
const finalReportTimeout = 30 * time.Second

// SignalStore is the part of the shared signal store used by the worker
type SignalStore interface {
	IsCancelled(sessionId string) (bool, error)
	SaveOutcome(sessionId string, status models.SessionStatus) error
}

// Fetcher resolves and downloads chat attachments
type Fetcher interface {
	Resolve(ctx context.Context, ref models.FileRef, targetChat int64) (models.FileRef, error)
	Fetch(ctx context.Context, ref models.FileRef, progress fetcher.ProgressFunc) (fetcher.Result, error)
}

// Uploaders returns the uploader for a service
type Uploaders interface {
	Get(service models.Service) (uploader.Uploader, error)
}

// Orchestrator runs a single upload job. Files are processed one after another
type Orchestrator struct {
	Messenger messenger.Messenger
	Fetcher   Fetcher
	Uploaders Uploaders
	Signals   SignalStore
	// ProgressInterval is the minimum time between two progress edits
	ProgressInterval time.Duration
	// Console receives a progress bar of every download if set
	Console io.Writer
}

// ParsePayload decodes and validates the job input. Returned errors wrap ErrInitialization.
// The partially decoded payload is returned as well, so that the failure can still be reported
func ParsePayload(data, sessionId, service string) (models.Payload, error) {
	payload, err := models.ParsePayload(data, sessionId, service)
	if err != nil {
		if payload.SessionId == "" {
			payload.SessionId = sessionId
		}
		return payload, fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	return payload, nil
}

// ReportInitFailure shows the failure in the status message, if the payload contains its coordinates,
// and stores the outcome if signals is not nil
func ReportInitFailure(ctx context.Context, m messenger.Messenger, signals SignalStore, payload models.Payload, err error) {
	logging.LogWarning(fmt.Sprintf("Job for session %s could not start: %v", payload.SessionId, err))
	if m != nil && payload.ChatId != 0 && payload.MessageId > 0 {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalReportTimeout)
		defer cancel()
		editErr := m.Edit(ctx, payload.ChatId, payload.MessageId, progress.RenderInitFailure(payload.SessionId, err), nil)
		if editErr != nil {
			logging.LogWarning(fmt.Sprintf("Could not report failure of session %s: %v", payload.SessionId, editErr))
		}
	}
	if signals != nil && payload.SessionId != "" {
		saveErr := signals.SaveOutcome(payload.SessionId, models.StatusFailed)
		if saveErr != nil {
			logging.LogWarning(fmt.Sprintf("Could not save outcome of session %s: %v", payload.SessionId, saveErr))
		}
	}
}

// Run processes all files of the payload and sends exactly one final report. The cancellation marker is
// checked before every file, a transfer in progress is always finished first
func (o *Orchestrator) Run(ctx context.Context, payload models.Payload) (report models.TransferReport) {
	report = models.TransferReport{
		SessionId:  payload.SessionId,
		Service:    payload.Service,
		TotalFiles: len(payload.Files),
		Status:     models.StatusFailed,
	}
	defer func() {
		if r := recover(); r != nil {
			report.Status = models.StatusFailed
			report.FatalError = fmt.Sprint(r)
		}
		o.finish(ctx, payload, report)
	}()

	err := payload.Validate()
	if err != nil {
		report.FatalError = fmt.Errorf("%w: %v", ErrInitialization, err).Error()
		return report
	}
	upload, err := o.Uploaders.Get(payload.Service)
	if err != nil {
		report.FatalError = fmt.Errorf("%w: %v", ErrInitialization, err).Error()
		return report
	}
	logging.LogTransferStarted(payload)

	isCancelled := false
	for i, file := range payload.Files {
		index := i + 1
		if ctx.Err() != nil {
			logging.LogWarning(fmt.Sprintf("Session %s: job interrupted before file %d/%d", payload.SessionId, index, len(payload.Files)))
			break
		}
		if o.isCancelled(payload.SessionId) {
			logging.LogCancelObserved(payload.SessionId, index, len(payload.Files))
			isCancelled = true
			break
		}
		result, err := o.processFile(ctx, payload, upload, file, index)
		if err != nil {
			logging.LogFileFailed(payload.SessionId, file.DisplayName(), err)
			continue
		}
		report.Uploaded = append(report.Uploaded, result)
		logging.LogFileUploaded(payload.SessionId, result)
	}

	switch {
	case isCancelled:
		report.Status = models.StatusCancelled
	case len(report.Uploaded) > 0:
		report.Status = models.StatusCompleted
	default:
		report.Status = models.StatusFailed
	}
	return report
}

func (o *Orchestrator) isCancelled(sessionId string) bool {
	if o.Signals == nil {
		return false
	}
	cancelled, err := o.Signals.IsCancelled(sessionId)
	if err != nil {
		logging.LogWarning(fmt.Sprintf("Session %s: could not read cancellation marker: %v", sessionId, err))
		return false
	}
	return cancelled
}

// processFile fetches and uploads a single file. A panic is returned as error, so that the
// remaining files are still processed
func (o *Orchestrator) processFile(ctx context.Context, payload models.Payload, upload uploader.Uploader, file models.FileRef, index int) (result models.UploadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()
	ref, err := o.Fetcher.Resolve(ctx, file, payload.ChatId)
	if err != nil {
		return models.UploadResult{}, err
	}

	state := progress.DownloadState{
		SessionId:  payload.SessionId,
		FileName:   ref.DisplayName(),
		FileIndex:  index,
		TotalFiles: len(payload.Files),
	}
	tracker := progress.NewTracker(o.ProgressInterval, func(snapshot progress.Snapshot) {
		state.Progress = snapshot
		o.edit(ctx, payload, progress.RenderDownloading(state), progress.CancelButtons(payload.SessionId))
	})
	if o.Console != nil {
		tracker.MirrorToConsole(o.Console, ref.DisplayName())
	}
	downloaded, err := o.Fetcher.Fetch(ctx, ref, func(current, total int64) {
		tracker.Update(current, total)
	})
	tracker.Flush()
	if err != nil {
		return models.UploadResult{}, err
	}
	defer removeLocalCopy(payload.SessionId, downloaded.Path)

	o.edit(ctx, payload, progress.RenderUploading(payload.SessionId, downloaded.FileName, payload.Service, index, len(payload.Files)),
		progress.CancelButtons(payload.SessionId))
	url, err := upload.Upload(ctx, downloaded.Path, downloaded.FileName)
	if err != nil {
		return models.UploadResult{}, err
	}
	return models.UploadResult{
		FileName: downloaded.FileName,
		Url:      url,
		Service:  payload.Service,
	}, nil
}

func removeLocalCopy(sessionId, path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		logging.LogWarning(fmt.Sprintf("Session %s: could not delete %s: %v", sessionId, path, err))
	}
}

// edit updates the status message. Failures are logged only, the next edit replaces the content anyway
func (o *Orchestrator) edit(ctx context.Context, payload models.Payload, text string, buttons []messenger.Button) {
	err := o.Messenger.Edit(ctx, payload.ChatId, payload.MessageId, text, buttons)
	if err != nil && ctx.Err() == nil {
		logging.LogWarning(fmt.Sprintf("Session %s: could not update status message: %v", payload.SessionId, err))
	}
}

// finish sends the final report and stores the outcome for the bot. Both are attempted even if ctx was cancelled
func (o *Orchestrator) finish(ctx context.Context, payload models.Payload, report models.TransferReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalReportTimeout)
	defer cancel()
	if payload.ChatId != 0 && payload.MessageId > 0 {
		o.edit(ctx, payload, progress.RenderReport(report), nil)
	}
	if o.Signals != nil && payload.SessionId != "" {
		err := o.Signals.SaveOutcome(payload.SessionId, report.Status)
		if err != nil {
			logging.LogWarning(fmt.Sprintf("Session %s: could not save outcome: %v", payload.SessionId, err))
		}
	}
	logging.LogTransferFinished(report)
}
