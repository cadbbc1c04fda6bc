// Package evaluator implements the activity-debt engine: it turns one day
// of raw hourly activity samples plus sleep intervals into a per-hour debt
// series and classifies the latest hour into an operating state.
//
// The pipeline runs four stages over the day log, in order:
//
//  1. seed hour records from the raw samples
//  2. disable tracking for hours covered by sleep windows and overrides
//  3. clamp accounted minutes (and debt) against the configured ceilings
//  4. accumulate debt with a forward, non-negative recurrence
//
// The engine is pure: no I/O, no shared state, safe to run concurrently
// for different subjects.
package evaluator

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/hourmaster/grabber"
	"github.com/hazyhaar/hourmaster/proto"
)

// Config holds the per-subject evaluation thresholds. Immutable for the
// duration of one evaluation.
type Config struct {
	// MinimumActiveMinutes is the hourly activity requirement (0 < v <= 60).
	MinimumActiveMinutes int
	// MaxAccountedMinutes caps how many minutes a single hour may credit.
	MaxAccountedMinutes int
	// DebtLimit caps the accumulated debt.
	DebtLimit int
	// DayBeginsAt is the assumed wake-up time when no sleep data exists.
	DayBeginsAt proto.TimeOfDay
	// DayEndsAt is the fallback evening wind-down start.
	DayEndsAt proto.TimeOfDay
	// DayLengthHours is the expected span of the active day.
	DayLengthHours int
}

// Validate rejects configurations the engine must never see.
func (c Config) Validate() error {
	if c.MinimumActiveMinutes <= 0 || c.MinimumActiveMinutes > 60 {
		return fmt.Errorf("minimum active minutes must be in (0, 60], got %d", c.MinimumActiveMinutes)
	}
	if c.MaxAccountedMinutes <= 0 {
		return fmt.Errorf("max accounted minutes must be positive, got %d", c.MaxAccountedMinutes)
	}
	if c.DebtLimit < 0 {
		return fmt.Errorf("debt limit must not be negative, got %d", c.DebtLimit)
	}
	if c.DayBeginsAt > c.DayEndsAt {
		return fmt.Errorf("day begins at %s, after it ends at %s", c.DayBeginsAt, c.DayEndsAt)
	}
	if c.DayLengthHours <= 0 {
		return fmt.Errorf("day length must be positive, got %d", c.DayLengthHours)
	}
	return nil
}

// Override is a manual per-hour correction. It forces the tracking-disabled
// flag for its hour regardless of what the sleep intervals derived.
type Override struct {
	Hour     int
	IsActive bool
}

// Data is one day of input for a single subject.
type Data struct {
	HourlyActivity []grabber.HourlyActivity
	SleepIntervals []grabber.SleepInterval
	Overrides      []Override
}

// Evaluator runs the debt pipeline for one (config, data) pair.
type Evaluator struct {
	cfg  Config
	data Data
	log  *slog.Logger
}

// New creates an Evaluator. A nil logger falls back to slog.Default.
func New(cfg Config, data Data, log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{cfg: cfg, data: data, log: log}
}

// DayLog runs the pipeline and returns the latest hour plus the full day
// log. With no upstream data the latest hour degrades to a safe terminal
// record (tracking disabled, complete, zero debt) and the gap is logged
// rather than propagated.
func (e *Evaluator) DayLog() (proto.HourSummary, []proto.HourSummary) {
	hours := e.seedHours()
	e.log.Debug("seeded day log", "hours", len(hours))
	e.excludeInactiveHours(hours)
	e.clampThresholds(hours)
	e.accumulateDebt(hours)

	if len(hours) == 0 {
		e.log.Error("day log is empty, falling back to tracking-disabled hour")
		return proto.HourSummary{Complete: true, TrackingDisabled: true}, hours
	}
	last := hours[len(hours)-1]
	e.log.Debug("evaluated day log", "current_debt", last.Debt)
	return last, hours
}

// Summary runs the pipeline and classifies the latest hour:
//
//   - no debt: Normal
//   - debt and the hour can still credit activity: DebtCollection
//   - debt but the accounting ceiling is reached: DebtCollectionPaused
func (e *Evaluator) Summary() proto.Summary {
	hour, dayLog := e.DayLog()

	var kind proto.Trigger
	switch {
	case hour.Debt > 0 && hour.AccountedActiveMinutes < e.cfg.MaxAccountedMinutes:
		kind = proto.TriggerDebtCollection
	case hour.Debt > 0:
		kind = proto.TriggerDebtCollectionPaused
	default:
		kind = proto.TriggerNormal
	}

	return proto.Summary{
		Status: proto.Status{Kind: kind, Hour: hour},
		DayLog: dayLog,
	}
}

// seedHours creates one record per raw sample; accounted minutes start out
// equal to the raw active minutes.
func (e *Evaluator) seedHours() []proto.HourSummary {
	hours := make([]proto.HourSummary, 0, len(e.data.HourlyActivity))
	for _, h := range e.data.HourlyActivity {
		hours = append(hours, proto.HourSummary{
			Hour:                   h.Hour,
			Complete:               h.Complete,
			ActiveMinutes:          h.ActiveMinutes,
			AccountedActiveMinutes: h.ActiveMinutes,
		})
	}
	return hours
}
