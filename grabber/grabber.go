// Package grabber is the wearable-provider boundary: it defines the data
// shapes the debt engine consumes (hourly activity counts, sleep intervals)
// and the Fitbit implementation that produces them.
package grabber

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/hourmaster/proto"
)

// ErrTokenExpired signals that the stored provider token can no longer be
// refreshed and the subject must re-authorise.
var ErrTokenExpired = errors.New("grabber: token expired")

// SleepInterval is a reported period of inactivity within one day.
type SleepInterval struct {
	Start proto.TimeOfDay `json:"start"`
	End   proto.TimeOfDay `json:"end"`
}

// HourlyActivity is the raw per-hour sample. Complete is true for hours
// that have fully elapsed; the in-progress hour stays incomplete.
type HourlyActivity struct {
	Hour          int  `json:"hour"`
	Complete      bool `json:"complete"`
	ActiveMinutes int  `json:"activeMinutes"`
}

// ActivityGrabber fetches one subject's activity data for a date.
// Implementations may rotate their auth token as a side effect; Token
// exposes the current value so callers can persist it.
type ActivityGrabber interface {
	FetchHourlyActivity(ctx context.Context, date time.Time) ([]HourlyActivity, error)
	FetchSleepIntervals(ctx context.Context, date time.Time) ([]SleepInterval, error)
	Token() string
}
