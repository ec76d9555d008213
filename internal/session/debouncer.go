package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DebounceState is the lifecycle of a Debouncer.
type DebounceState int

const (
	Idle DebounceState = iota
	Scheduled
	Flushing
)

func (s DebounceState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Flushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// FlushFunc writes pending changes.
type FlushFunc func(ctx context.Context) error

// Debouncer runs a FlushFunc on the trailing edge of a burst of Trigger
// calls. Every Trigger cancels the armed timer and arms a new one, so the
// function runs once the triggers have been quiet for the delay. Runs never
// overlap.
type Debouncer struct {
	clock  clockwork.Clock
	delay  time.Duration
	logger *slog.Logger

	run sync.Mutex // held for the duration of a flush

	mu      sync.Mutex
	fn      FlushFunc
	state   DebounceState
	timer   clockwork.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns an idle debouncer. A non-positive delay is replaced
// by DefaultFlushDelay.
func NewDebouncer(clk clockwork.Clock, delay time.Duration, fn FlushFunc, logger *slog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Debouncer{clock: clk, delay: delay, fn: fn, logger: logger}
}

// State returns the current state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Trigger arms the timer, replacing any armed one. It does nothing once
// the debouncer is stopped.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.armLocked()
}

// SetFunc replaces the flush function. An armed timer is torn down and
// re-armed so the pending run calls the new function.
func (d *Debouncer) SetFunc(fn FlushFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fn = fn
	if d.timer != nil {
		d.armLocked()
	}
}

// Flush cancels the armed timer, if any, and runs the function now.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	d.disarmLocked()
	d.mu.Unlock()
	return d.flush(ctx)
}

// Stop disarms the debouncer and runs the function one last time so that
// nothing triggered before Stop is lost. Later calls to Trigger are
// ignored.
func (d *Debouncer) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.disarmLocked()
	d.mu.Unlock()
	return d.flush(ctx)
}

func (d *Debouncer) armLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
	if d.state == Idle {
		d.state = Scheduled
	}
}

func (d *Debouncer) disarmLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.state == Scheduled {
		d.state = Idle
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that was replaced or disarmed after it started firing must
	// not run.
	if d.timer == nil || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	if err := d.flush(context.Background()); err != nil {
		d.logger.Error("Debounced flush failed", "error", err)
	}
}

func (d *Debouncer) flush(ctx context.Context) error {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()
	fn := d.fn
	d.state = Flushing
	d.mu.Unlock()

	err := fn(ctx)

	d.mu.Lock()
	if d.timer != nil {
		d.state = Scheduled
	} else {
		d.state = Idle
	}
	d.mu.Unlock()
	return err
}
