// Package activity composes the debt engine with its collaborators: the
// settings store, the wearable-provider client, the provider response
// cache and the per-subject summary cache.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/hourmaster/evaluator"
	"github.com/hazyhaar/hourmaster/grabber"
	"github.com/hazyhaar/hourmaster/proto"
	"github.com/hazyhaar/hourmaster/store"
)

// responseMaxAge is the freshness window for cached provider payloads.
const responseMaxAge = time.Minute

// GrabberFactory builds a provider client from stored credentials. It is
// injectable so tests never talk to the real provider.
type GrabberFactory func(creds store.Credentials) (grabber.ActivityGrabber, error)

// Service evaluates the current summary for a subject.
type Service struct {
	store      *store.Store
	cache      *SummaryCache
	newGrabber GrabberFactory
	log        *slog.Logger
}

// NewService wires the evaluation entry point. A nil logger falls back to
// slog.Default.
func NewService(st *store.Store, cache *SummaryCache, factory GrabberFactory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, cache: cache, newGrabber: factory, log: log}
}

// providerData is the cacheable slice of provider output.
type providerData struct {
	SleepIntervals []grabber.SleepInterval  `json:"sleepIntervals"`
	HourlyActivity []grabber.HourlyActivity `json:"hourlyActivity"`
}

// CurrentSummary evaluates the subject's summary for the day containing
// now. Results are memoized for a minute per subject.
func (s *Service) CurrentSummary(ctx context.Context, userID int64, now time.Time) (proto.Summary, error) {
	if summary, ok := s.cache.Get(userID, now); ok {
		s.log.Debug("summary cache hit", "user_id", userID)
		return summary, nil
	}

	settings, err := s.store.Settings(ctx, userID)
	if err != nil {
		return proto.Summary{}, fmt.Errorf("load settings: %w", err)
	}
	cfg := configFromSettings(settings)
	if err := cfg.Validate(); err != nil {
		return proto.Summary{}, proto.InvalidSetting("evaluator", err.Error())
	}

	data, err := s.loadData(ctx, userID, now)
	if err != nil {
		return proto.Summary{}, err
	}

	overrides, err := s.store.Overrides(ctx, userID, now)
	if err != nil {
		return proto.Summary{}, fmt.Errorf("load overrides: %w", err)
	}

	summary := evaluator.New(cfg, evaluator.Data{
		HourlyActivity: data.HourlyActivity,
		SleepIntervals: data.SleepIntervals,
		Overrides:      overrides,
	}, s.log).Summary()

	s.cache.Put(userID, summary, now)
	return summary, nil
}

// loadData returns the day's provider data, from the response cache when
// fresh, otherwise from the provider (rotating the stored token).
func (s *Service) loadData(ctx context.Context, userID int64, now time.Time) (*providerData, error) {
	if payload, err := s.store.CachedResponse(ctx, userID, responseMaxAge, now); err == nil {
		var data providerData
		if err := json.Unmarshal([]byte(payload), &data); err == nil {
			s.log.Debug("provider response cache hit", "user_id", userID)
			return &data, nil
		}
		s.log.Warn("discarding undecodable cached response", "user_id", userID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read response cache: %w", err)
	}

	creds, err := s.store.Credentials(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, proto.ErrTokenExpired
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds.ClientToken == "" {
		s.log.Warn("no provider token on file", "user_id", userID)
		return nil, proto.ErrTokenExpired
	}

	g, err := s.newGrabber(*creds)
	if err != nil {
		if errors.Is(err, grabber.ErrTokenExpired) {
			return nil, proto.ErrTokenExpired
		}
		return nil, fmt.Errorf("provider login: %w", err)
	}

	// Persist the rotated token before fetching, so a later fetch failure
	// does not strand a burnt refresh token.
	if tok := g.Token(); tok != "" && tok != creds.ClientToken {
		if err := s.store.UpdateProviderToken(ctx, userID, tok); err != nil {
			return nil, fmt.Errorf("persist rotated token: %w", err)
		}
	}

	hourly, err := g.FetchHourlyActivity(ctx, now)
	if err != nil {
		return nil, s.mapGrabberErr("fetch hourly activity", err)
	}
	sleep, err := g.FetchSleepIntervals(ctx, now)
	if err != nil {
		return nil, s.mapGrabberErr("fetch sleep intervals", err)
	}

	data := &providerData{SleepIntervals: sleep, HourlyActivity: hourly}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode response cache: %w", err)
	}
	if err := s.store.PutCachedResponse(ctx, userID, string(payload), now); err != nil {
		return nil, fmt.Errorf("write response cache: %w", err)
	}
	return data, nil
}

func (s *Service) mapGrabberErr(op string, err error) error {
	if errors.Is(err, grabber.ErrTokenExpired) {
		return proto.ErrTokenExpired
	}
	return fmt.Errorf("%s: %w", op, err)
}

// configFromSettings maps stored settings onto an evaluator config,
// filling the optional limits with their defaults: both limits default to
// three times the hourly goal, the day length to the start/end hour span.
func configFromSettings(set *store.Settings) evaluator.Config {
	cfg := evaluator.Config{
		MinimumActiveMinutes: set.HourlyActivityGoal,
		MaxAccountedMinutes:  set.HourlyActivityGoal * 3,
		DebtLimit:            set.HourlyActivityGoal * 3,
		DayBeginsAt:          set.DayStartsAt,
		DayEndsAt:            set.DayEndsAt,
		DayLengthHours:       set.DayEndsAt.Hour() - set.DayStartsAt.Hour(),
	}
	if set.HourlyActivityLimit != nil {
		cfg.MaxAccountedMinutes = *set.HourlyActivityLimit
	}
	if set.HourlyDebtLimit != nil {
		cfg.DebtLimit = *set.HourlyDebtLimit
	}
	if set.DayLength != nil {
		cfg.DayLengthHours = *set.DayLength
	}
	return cfg
}
