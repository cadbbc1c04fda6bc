package evaluator

import (
	"time"

	"github.com/hazyhaar/hourmaster/grabber"
	"github.com/hazyhaar/hourmaster/proto"
)

// excludeInactiveHours marks hours covered by sleep windows as
// tracking-disabled and credits them with the minimum requirement, so a
// sleeping hour neither accrues nor relieves debt.
func (e *Evaluator) excludeInactiveHours(hours []proto.HourSummary) {
	intervals := make([]grabber.SleepInterval, len(e.data.SleepIntervals))
	copy(intervals, e.data.SleepIntervals)

	// No sleep report: assume the subject slept until the configured day start.
	if len(intervals) == 0 {
		intervals = append(intervals, grabber.SleepInterval{
			Start: proto.Midnight,
			End:   e.cfg.DayBeginsAt,
		})
	}

	dayEnd := e.inferDayEnd(intervals)
	e.log.Debug("inferred day end", "day_end", dayEnd.String())

	// Trailing wind-down interval for the evening.
	if e.cfg.DayEndsAt > dayEnd {
		dayEnd = e.cfg.DayEndsAt
	}
	intervals = append(intervals, grabber.SleepInterval{Start: dayEnd, End: proto.EndOfDay})

	for i := range hours {
		for _, iv := range intervals {
			if e.coversHour(iv, hours[i].Hour) {
				hours[i].TrackingDisabled = true
			}
		}
	}

	// Manual overrides win over anything interval-derived.
	for _, over := range e.data.Overrides {
		if over.Hour < 0 || over.Hour >= len(hours) {
			e.log.Warn("override hour outside day log, ignored", "hour", over.Hour)
			continue
		}
		hours[over.Hour].TrackingDisabled = !over.IsActive
	}

	for i := range hours {
		if hours[i].TrackingDisabled && hours[i].AccountedActiveMinutes < e.cfg.MinimumActiveMinutes {
			hours[i].AccountedActiveMinutes = e.cfg.MinimumActiveMinutes
		}
	}
}

// inferDayEnd folds over the sleep intervals: the first interval's end
// starts the active day (plus the configured day length), and every later
// interval pushes the end out by its own duration. If the addition wraps
// past midnight the result is clamped to 23:59:59; the wrap is detected by
// the sum landing before the interval end it was computed from.
func (e *Evaluator) inferDayEnd(intervals []grabber.SleepInterval) proto.TimeOfDay {
	var end proto.TimeOfDay
	for i, iv := range intervals {
		if i == 0 {
			end = iv.End.Add(time.Duration(e.cfg.DayLengthHours) * time.Hour)
		} else {
			end = end.Add(iv.End.Sub(iv.Start))
		}
		if end < iv.End {
			end = proto.EndOfDay
		}
	}
	return end
}

// coversHour reports whether the interval disables the given hour: either
// the hour lies fully inside it, or the interval ends within the last
// MinimumActiveMinutes of the hour, leaving too little of it awake.
func (e *Evaluator) coversHour(iv grabber.SleepInterval, hour int) bool {
	if hour >= iv.Start.Hour() && hour < iv.End.Hour() {
		return true
	}
	return hour == iv.End.Hour() && iv.End.Minute() > 60-e.cfg.MinimumActiveMinutes
}
