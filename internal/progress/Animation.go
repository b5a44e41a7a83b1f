package progress

import (
	"context"
	"time"

	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
)

// Animation refreshes the "initializing" status message of a session until the worker takes over
type Animation struct {
	Messenger messenger.Messenger
	Session   models.UploadSession
	Interval  time.Duration
	// MaxUpdates bounds the number of edits, the last frame stays visible afterwards
	MaxUpdates int
	// IsActive is checked before every edit. Returning false stops the animation
	IsActive func() bool
}

// Run edits the status message once per interval. It returns the number of frames sent and stops
// when ctx is cancelled, IsActive returns false or MaxUpdates is reached. Errors of single edits are ignored
func (a Animation) Run(ctx context.Context) int {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	sent := 0
	for frame := 1; frame <= a.MaxUpdates; frame++ {
		select {
		case <-ctx.Done():
			return sent
		case <-ticker.C:
		}
		if ctx.Err() != nil || (a.IsActive != nil && !a.IsActive()) {
			return sent
		}
		text := RenderInitializing(a.Session, frame)
		err := a.Messenger.Edit(ctx, a.Session.ChatId, a.Session.MessageId, text, CancelButtons(a.Session.Id))
		if err == nil {
			sent++
		}
	}
	return sent
}

// Animate starts the animation in a new goroutine. The returned cancel function does not block, the channel is
// closed once the goroutine returned
func Animate(parent context.Context, animation Animation) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		animation.Run(ctx)
	}()
	return cancel, finished
}
