package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hazyhaar/hourmaster/proto"
)

// Settings is a subject's evaluation configuration as stored. The optional
// fields default at evaluation time (limits to 3x the goal, day length to
// the start/end hour difference).
type Settings struct {
	UserID              int64           `json:"-"`
	HourlyActivityGoal  int             `json:"hourlyActivityGoal"`
	DayStartsAt         proto.TimeOfDay `json:"dayStartsAt"`
	DayEndsAt           proto.TimeOfDay `json:"dayEndsAt"`
	DayLength           *int            `json:"dayLength,omitempty"`
	HourlyDebtLimit     *int            `json:"hourlyDebtLimit,omitempty"`
	HourlyActivityLimit *int            `json:"hourlyActivityLimit,omitempty"`
}

// Settings returns the stored settings for the user.
func (s *Store) Settings(ctx context.Context, userID int64) (*Settings, error) {
	var (
		set        Settings
		start, end string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, hourly_activity_goal, day_starts_at, day_ends_at,
		       day_length, hourly_debt_limit, hourly_activity_limit
		FROM settings WHERE user_id = ?`, userID).
		Scan(&set.UserID, &set.HourlyActivityGoal, &start, &end,
			&set.DayLength, &set.HourlyDebtLimit, &set.HourlyActivityLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if set.DayStartsAt, err = proto.ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if set.DayEndsAt, err = proto.ParseTimeOfDay(end); err != nil {
		return nil, err
	}
	return &set, nil
}

// PutSettings inserts or replaces the user's settings row.
func (s *Store) PutSettings(ctx context.Context, set *Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, hourly_activity_goal, day_starts_at, day_ends_at,
		                      day_length, hourly_debt_limit, hourly_activity_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    hourly_activity_goal = excluded.hourly_activity_goal,
		    day_starts_at = excluded.day_starts_at,
		    day_ends_at = excluded.day_ends_at,
		    day_length = excluded.day_length,
		    hourly_debt_limit = excluded.hourly_debt_limit,
		    hourly_activity_limit = excluded.hourly_activity_limit`,
		set.UserID, set.HourlyActivityGoal, set.DayStartsAt.String(), set.DayEndsAt.String(),
		set.DayLength, set.HourlyDebtLimit, set.HourlyActivityLimit)
	return err
}

// Credentials is the stored provider OAuth2 client pair plus the subject's
// current refresh token (empty until first authorisation).
type Credentials struct {
	UserID       int64
	ClientID     string
	ClientSecret string
	ClientToken  string
}

// Credentials returns the provider credentials for the user.
func (s *Store) Credentials(ctx context.Context, userID int64) (*Credentials, error) {
	var (
		c     Credentials
		token sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, client_id, client_secret, client_token
		FROM provider_credentials WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.ClientID, &c.ClientSecret, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ClientToken = token.String
	return &c, nil
}

// PutCredentials inserts or replaces the user's provider credentials.
func (s *Store) PutCredentials(ctx context.Context, c *Credentials) error {
	var token any
	if c.ClientToken != "" {
		token = c.ClientToken
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_credentials (user_id, client_id, client_secret, client_token)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    client_id = excluded.client_id,
		    client_secret = excluded.client_secret,
		    client_token = excluded.client_token`,
		c.UserID, c.ClientID, c.ClientSecret, token)
	return err
}

// UpdateProviderToken stores a rotated provider token.
func (s *Store) UpdateProviderToken(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE provider_credentials SET client_token = ? WHERE user_id = ?`, token, userID)
	return err
}
