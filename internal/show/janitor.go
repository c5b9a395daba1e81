package show

import (
	"context"
	"livekaraoke/internal/model"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultSweepInterval = 30 * time.Minute
	DefaultStartInterval = time.Minute
)

// LifecycleHook is told about shows opening and leaving the registry
type LifecycleHook interface {
	ShowStarted(ctx context.Context, show model.Show)
	ShowEnded(ctx context.Context, show model.Show, reason EndReason)
}

// Janitor runs the registry's periodic sweep and start detection
type Janitor struct {
	registry      Registry
	clock         Clock
	hook          LifecycleHook
	log           *slog.Logger
	sweepInterval time.Duration
	startInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a janitor. Zero intervals use the defaults.
func NewJanitor(registry Registry, clock Clock, hook LifecycleHook, log *slog.Logger, sweepInterval, startInterval time.Duration) *Janitor {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if startInterval <= 0 {
		startInterval = DefaultStartInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		registry:      registry,
		clock:         clock,
		hook:          hook,
		log:           log,
		sweepInterval: sweepInterval,
		startInterval: startInterval,
	}
}

// Start launches the background loop. It returns immediately.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	// Arm both timers before returning so clock movement right after Start counts
	sweep := newClockTicker(j.clock, j.sweepInterval)
	starts := newClockTicker(j.clock, j.startInterval)
	go j.run(ctx, j.done, sweep, starts)
}

// Stop halts the loop and waits for it to exit
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}, sweep, starts *clockTicker) {
	defer close(done)
	defer sweep.Stop()
	defer starts.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			j.Sweep(ctx)
		case <-starts.C:
			j.CheckStarts(ctx)
		}
	}
}

// Tick runs one start check and one sweep
func (j *Janitor) Tick(ctx context.Context) {
	j.CheckStarts(ctx)
	j.Sweep(ctx)
}

// Sweep evicts finished shows and reports each one to the hook
func (j *Janitor) Sweep(ctx context.Context) []Eviction {
	evicted := j.registry.Sweep(j.clock.Now())
	for _, ev := range evicted {
		j.log.Info("show evicted",
			slog.String("show_id", ev.Show.ID),
			slog.String("reason", string(ev.Reason)),
		)
		if j.hook != nil {
			j.hook.ShowEnded(ctx, ev.Show, ev.Reason)
		}
	}
	return evicted
}

// CheckStarts reports shows whose window just opened
func (j *Janitor) CheckStarts(ctx context.Context) {
	for _, snap := range j.registry.StartDue(j.clock.Now()) {
		j.log.Info("show started", slog.String("show_id", snap.ID))
		if j.hook != nil {
			j.hook.ShowStarted(ctx, snap)
		}
	}
}

// clockTicker fires on C every interval of the given clock. Like time.Ticker
// it drops ticks for a slow receiver.
type clockTicker struct {
	clock    Clock
	interval time.Duration
	C        chan struct{}

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

func newClockTicker(clock Clock, interval time.Duration) *clockTicker {
	t := &clockTicker{clock: clock, interval: interval, C: make(chan struct{}, 1)}
	t.arm()
	return t
}

func (t *clockTicker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.timer = t.clock.AfterFunc(t.interval, t.fire)
}

func (t *clockTicker) fire() {
	select {
	case t.C <- struct{}{}:
	default:
	}
	t.arm()
}

// Stop cancels the pending tick
func (t *clockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
