package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/juju/ratelimit"
)

// idleTimeout aborts a download that made no progress
const idleTimeout = 2 * time.Minute

// ErrFetch is returned if a file could not be downloaded. The orchestrator skips the file
var ErrFetch = errors.New("could not fetch file")

// ProgressFunc is called with the number of downloaded bytes. total is 0 if unknown
type ProgressFunc func(current, total int64)

// Result is a downloaded file
type Result struct {
	Path     string
	FileName string
	Size     int64
}

// Fetcher downloads chat attachments into a local directory
type Fetcher struct {
	bot          *tgbotapi.BotAPI
	fileEndpoint string
	downloadDir  string
	bytesPerSec  int64
	client       *http.Client
	freeSpace    func(path string) (uint64, error)
}

// New returns a fetcher that stores files in downloadDir. apiEndpoint is the endpoint the bot was created with.
// maxBandwidthKB limits the download speed, 0 is unlimited
func New(bot *tgbotapi.BotAPI, apiEndpoint, downloadDir string, maxBandwidthKB int) *Fetcher {
	helper.CreateDir(downloadDir)
	return &Fetcher{
		bot:          bot,
		fileEndpoint: fileEndpointFor(apiEndpoint),
		downloadDir:  downloadDir,
		bytesPerSec:  int64(maxBandwidthKB) * 1024,
		client:       helper.NewHttpClient(idleTimeout, idleTimeout),
		freeSpace:    helper.GetFreeSpace,
	}
}

// fileEndpointFor derives the download URL format from the API endpoint. Self-hosted Bot API
// servers serve files under the same host
func fileEndpointFor(apiEndpoint string) string {
	if apiEndpoint == "" || apiEndpoint == tgbotapi.APIEndpoint {
		return tgbotapi.FileEndpoint
	}
	if strings.HasSuffix(apiEndpoint, "/bot%s/%s") {
		return strings.TrimSuffix(apiEndpoint, "/bot%s/%s") + "/file/bot%s/%s"
	}
	return tgbotapi.FileEndpoint
}

// Resolve returns the attachment reference for ref. Links are resolved by forwarding the message into
// targetChat, reading the attachment and deleting the forwarded copy
func (f *Fetcher) Resolve(ctx context.Context, ref models.FileRef, targetChat int64) (models.FileRef, error) {
	if !ref.IsLink() {
		return ref, nil
	}
	if ctx.Err() != nil {
		return models.FileRef{}, ctx.Err()
	}
	forward := tgbotapi.NewForward(targetChat, ref.Chat.Id, ref.MessageId)
	if ref.Chat.Username != "" {
		forward.FromChatID = 0
		forward.FromChannelUsername = ref.Chat.Username
	}
	forward.DisableNotification = true
	msg, err := f.bot.Send(forward)
	if err != nil {
		return models.FileRef{}, fmt.Errorf("%w: cannot access message %d in %s: %v", ErrFetch, ref.MessageId, ref.Chat, err)
	}
	_, _ = f.bot.Request(tgbotapi.NewDeleteMessage(targetChat, msg.MessageID))
	resolved, ok := messenger.AttachmentFromMessage(&msg)
	if !ok {
		return models.FileRef{}, fmt.Errorf("%w: message %d in %s contains no file", ErrFetch, ref.MessageId, ref.Chat)
	}
	return resolved, nil
}

// Fetch downloads the attachment. Links have to be resolved first. The caller is responsible for
// removing the file at Result.Path
func (f *Fetcher) Fetch(ctx context.Context, ref models.FileRef, progress ProgressFunc) (Result, error) {
	if ref.IsLink() {
		return Result{}, fmt.Errorf("%w: unresolved link", ErrFetch)
	}
	file, err := f.bot.GetFile(tgbotapi.FileConfig{FileID: ref.FileId})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	total := ref.FileSize
	if int64(file.FileSize) > 0 {
		total = int64(file.FileSize)
	}
	err = f.checkFreeSpace(total)
	if err != nil {
		return Result{}, err
	}
	fileName := sanitiseFileName(ref.FileName, file.FilePath)

	source, err := f.open(ctx, file.FilePath)
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	destination, err := os.CreateTemp(f.downloadDir, "relay-*-"+fileName)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	path := destination.Name()
	var reader io.Reader = source
	if f.bytesPerSec > 0 {
		reader = ratelimit.Reader(source, ratelimit.NewBucketWithRate(float64(f.bytesPerSec), f.bytesPerSec))
	}
	written, err := io.Copy(destination, io.TeeReader(reader, &counter{total: total, progress: progress}))
	closeErr := destination.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return Result{}, fmt.Errorf("%w: download interrupted: %v", ErrFetch, err)
	}
	if progress != nil {
		progress(written, max(total, written))
	}
	return Result{Path: path, FileName: fileName, Size: written}, nil
}

// open returns the content of the file. A self-hosted Bot API server in local mode returns
// absolute paths, which are read directly
func (f *Fetcher) open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	if filepath.IsAbs(filePath) && helper.FileExists(filePath) {
		file, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return file, nil
	}
	url := fmt.Sprintf(f.fileEndpoint, f.bot.Token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, redactToken(err.Error(), f.bot.Token))
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: server returned status %d", ErrFetch, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) checkFreeSpace(required int64) error {
	if required <= 0 {
		return nil
	}
	free, err := f.freeSpace(f.downloadDir)
	if err != nil {
		// unknown, the download fails later if the disk is full
		return nil
	}
	if free < uint64(required) {
		return fmt.Errorf("%w: not enough free space, %s required, %s available",
			ErrFetch, helper.ByteCountSI(required), helper.ByteCountSI(int64(free)))
	}
	return nil
}

func sanitiseFileName(name, remotePath string) string {
	if name == "" {
		name = filepath.Base(remotePath)
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "*", "_")
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

func redactToken(input, token string) string {
	if token == "" {
		return input
	}
	return strings.ReplaceAll(input, token, "<token>")
}

type counter struct {
	current  int64
	total    int64
	progress ProgressFunc
}

func (c *counter) Write(p []byte) (int, error) {
	c.current += int64(len(p))
	if c.progress != nil {
		c.progress(c.current, c.total)
	}
	return len(p), nil
}
