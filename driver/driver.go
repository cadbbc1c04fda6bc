// Package driver runs the state-change side of hourmaster: a fixed-period
// poll of the evaluation service, debounce over the returned state variant,
// and dispatch to registered targets (plugin executables) when the state
// calls for action.
//
// Debounce rule: a tick whose variant equals the previous tick's variant is
// a no-op, except for DebtCollection — a subject in active debt collection
// is renotified on every poll. Normal and DebtCollectionPaused are resting
// states and only fire on entry.
package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/hourmaster/proto"
)

// Source yields the current status for the polled subject.
type Source interface {
	Current(ctx context.Context) (proto.Status, error)
}

// Target is a dispatchable action. Invoke receives the trigger that fired
// and the hour record the state was classified from.
type Target interface {
	Name() string
	Triggers() []proto.Trigger
	Invoke(ctx context.Context, trigger proto.Trigger, hour proto.HourSummary) error
}

// Options tunes the driver loop.
type Options struct {
	// Period is the polling frequency. Default: 60s.
	Period time.Duration
	// DispatchTimeout bounds a single target invocation. A timed-out
	// target counts as a dispatch failure. Default: 30s.
	DispatchTimeout time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Period <= 0 {
		o.Period = time.Minute
	}
	if o.DispatchTimeout <= 0 {
		o.DispatchTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Stats are point-in-time counters.
type Stats struct {
	Ticks          int64 `json:"ticks"`
	TickErrors     int64 `json:"tick_errors"`
	Dispatches     int64 `json:"dispatches"`
	DispatchErrors int64 `json:"dispatch_errors"`
}

// Driver owns the poll loop and the debounce state. It is deliberately
// sequential: a tick completes, dispatch included, before the next fetch
// starts, so the previous-status transition is never interleaved.
type Driver struct {
	source  Source
	targets []Target
	opts    Options

	// prev is the last status that led to a dispatch decision. Owned by
	// the Run goroutine.
	prev *proto.Status

	ticks          atomic.Int64
	tickErrors     atomic.Int64
	dispatches     atomic.Int64
	dispatchErrors atomic.Int64
}

// New creates a Driver over the given source and dispatch targets.
func New(source Source, targets []Target, opts Options) *Driver {
	opts.defaults()
	return &Driver{source: source, targets: targets, opts: opts}
}

// Stats returns the current counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Ticks:          d.ticks.Load(),
		TickErrors:     d.tickErrors.Load(),
		Dispatches:     d.dispatches.Load(),
		DispatchErrors: d.dispatchErrors.Load(),
	}
}

// Run blocks until ctx is cancelled, polling at the configured period.
// The first tick fires immediately. No tick error is fatal: a failed fetch
// abandons the tick (no dispatch, no debounce update) and the fixed period
// doubles as the retry interval.
func (d *Driver) Run(ctx context.Context) {
	log := d.opts.Logger
	log.Info("driver started", "period", d.opts.Period, "targets", len(d.targets))

	ticker := time.NewTicker(d.opts.Period)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("driver stopped")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	log := d.opts.Logger
	d.ticks.Add(1)

	status, err := d.source.Current(ctx)
	if err != nil {
		d.tickErrors.Add(1)
		log.Error("status fetch failed, tick abandoned", "error", err)
		return
	}
	log.Debug("fetched status", "state", string(status.Kind), "debt", status.Hour.Debt)

	if d.prev != nil && d.prev.Kind == status.Kind && !status.IsDebtCollection() {
		log.Info("state unchanged, not dispatching", "state", string(status.Kind))
		return
	}
	d.prev = &status

	d.dispatch(ctx, status)
}

// dispatch invokes every target registered for the status's trigger.
// Targets run in order; one target's failure (error, non-zero exit,
// timeout) is logged and never stops its siblings.
func (d *Driver) dispatch(ctx context.Context, status proto.Status) {
	log := d.opts.Logger
	for _, t := range d.targets {
		if !triggered(t, status.Kind) {
			continue
		}
		log.Info("dispatching", "target", t.Name(), "trigger", string(status.Kind))

		tctx, cancel := context.WithTimeout(ctx, d.opts.DispatchTimeout)
		err := t.Invoke(tctx, status.Kind, status.Hour)
		cancel()

		if err != nil {
			d.dispatchErrors.Add(1)
			log.Error("dispatch failed", "target", t.Name(), "error", err)
			continue
		}
		d.dispatches.Add(1)
	}
}

func triggered(t Target, trigger proto.Trigger) bool {
	for _, candidate := range t.Triggers() {
		if candidate == trigger {
			return true
		}
	}
	return false
}
