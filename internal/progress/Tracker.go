package progress

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Snapshot is the transfer state passed to the render callback
type Snapshot struct {
	Current    int64
	Total      int64
	Percentage float64
	// Speed is the average throughput since the tracker was started in bytes per second
	Speed float64
	// Eta is zero if the speed is zero or the total is unknown
	Eta time.Duration
}

// Tracker throttles progress updates of a single file transfer. Render is called at most once per
// interval, plus once when the transfer is complete
type Tracker struct {
	interval   time.Duration
	render     func(Snapshot)
	now        func() time.Time
	start      time.Time
	lastRender time.Time
	hasRender  bool
	isFinished bool
	isDirty    bool
	last       Snapshot
	console    *progressbar.ProgressBar
	consoleOut io.Writer
	consoleMsg string
	mutex      sync.Mutex
}

// NewTracker returns a tracker that calls render with the current state. The clock starts with the first call
func NewTracker(interval time.Duration, render func(Snapshot)) *Tracker {
	return &Tracker{
		interval: interval,
		render:   render,
		now:      time.Now,
	}
}

// MirrorToConsole also draws the progress to w, e.g. the log of the job runner
func (t *Tracker) MirrorToConsole(w io.Writer, description string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.consoleOut = w
	t.consoleMsg = description
}

// Update records the transferred bytes and returns true if the state was rendered.
// It can be used directly as a progress callback
func (t *Tracker) Update(current, total int64) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	now := t.now()
	if t.start.IsZero() {
		t.start = now
	}
	t.last = t.calculate(current, total, now)
	t.isDirty = true
	t.updateConsole(current, total)

	isComplete := total > 0 && current >= total
	if isComplete {
		if t.isFinished {
			t.isDirty = false
			return false
		}
		t.isFinished = true
		return t.doRender(now)
	}
	if t.hasRender && now.Sub(t.lastRender) < t.interval {
		return false
	}
	return t.doRender(now)
}

// Flush renders the last known state, unless it was already rendered
func (t *Tracker) Flush() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.isDirty {
		return
	}
	t.doRender(t.now())
}

func (t *Tracker) doRender(now time.Time) bool {
	t.lastRender = now
	t.hasRender = true
	t.isDirty = false
	if t.render != nil {
		t.render(t.last)
	}
	return true
}

func (t *Tracker) calculate(current, total int64, now time.Time) Snapshot {
	result := Snapshot{
		Current:    current,
		Total:      total,
		Percentage: Percentage(current, total),
	}
	elapsed := now.Sub(t.start).Seconds()
	if elapsed > 0 {
		result.Speed = float64(current) / elapsed
	}
	if result.Speed > 0 && total > current {
		result.Eta = time.Duration(float64(total-current) / result.Speed * float64(time.Second))
	}
	return result
}

func (t *Tracker) updateConsole(current, total int64) {
	if t.consoleOut == nil {
		return
	}
	if t.console == nil {
		max := total
		if max <= 0 {
			max = -1
		}
		t.console = progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(t.consoleOut),
			progressbar.OptionSetDescription(t.consoleMsg),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(BarSegments*3),
			progressbar.OptionThrottle(500*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = io.WriteString(t.consoleOut, "\n")
			}),
		)
	} else if total > 0 && t.console.GetMax64() != total {
		t.console.ChangeMax64(total)
	}
	_ = t.console.Set64(current)
}
