package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forceu/uploadrelay/internal/models"
)

const extensionCancel = ".cancel"
const extensionOutcome = ".outcome"

// SignalProvider stores markers as files, named <session id>.cancel and <session id>.outcome
type SignalProvider struct {
	dir string
}

// New returns an instance and creates the marker directory, if necessary
func New(config models.SignalConnection) (SignalProvider, error) {
	if config.Path == "" {
		return SignalProvider{}, errors.New("empty marker directory was provided")
	}
	dir := filepath.Clean(config.Path)
	err := os.MkdirAll(dir, 0770)
	if err != nil {
		return SignalProvider{}, err
	}
	return SignalProvider{dir: dir}, nil
}

// GetType returns 0, for being a local filesystem provider
func (p SignalProvider) GetType() int {
	return 0 // signalstore.TypeLocal
}

func (p SignalProvider) markerPath(sessionId, extension string) string {
	return filepath.Join(p.dir, filepath.Base(sessionId)+extension)
}

// RequestCancel creates the cancellation marker. The marker content is the creation time and informational only
func (p SignalProvider) RequestCancel(sessionId string) (bool, error) {
	file, err := os.OpenFile(p.markerPath(sessionId, extensionCancel), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0660)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()
	_, err = file.WriteString(strconv.FormatInt(time.Now().Unix(), 10))
	return true, err
}

// IsCancelled returns true if a cancellation marker exists
func (p SignalProvider) IsCancelled(sessionId string) (bool, error) {
	return exists(p.markerPath(sessionId, extensionCancel))
}

// SaveOutcome stores the terminal status reported by the worker
func (p SignalProvider) SaveOutcome(sessionId string, status models.SessionStatus) error {
	target := p.markerPath(sessionId, extensionOutcome)
	temp := target + ".tmp"
	err := os.WriteFile(temp, []byte(status), 0660)
	if err != nil {
		return err
	}
	return os.Rename(temp, target)
}

// GetOutcome returns the terminal status reported by the worker or false if none was saved yet
func (p SignalProvider) GetOutcome(sessionId string) (models.SessionStatus, bool, error) {
	content, err := os.ReadFile(p.markerPath(sessionId, extensionOutcome))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return models.SessionStatus(strings.TrimSpace(string(content))), true, nil
}

// Purge deletes all markers of a session
func (p SignalProvider) Purge(sessionId string) error {
	for _, extension := range []string{extensionCancel, extensionOutcome} {
		err := os.Remove(p.markerPath(sessionId, extension))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// PurgeOlderThan deletes all markers that have not been modified within the given duration
func (p SignalProvider) PurgeOlderThan(age time.Duration) error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-age)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, extensionCancel) && !strings.HasSuffix(name, extensionOutcome) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			err = os.Remove(filepath.Join(p.dir, name))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}

// Close is a no-op for the local provider
func (p SignalProvider) Close() {}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
