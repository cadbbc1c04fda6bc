package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/hourmaster/evaluator"
)

const dateLayout = "2006-01-02"

// Overrides returns the manual per-hour corrections for a user and date,
// ordered by hour.
func (s *Store) Overrides(ctx context.Context, userID int64, date time.Time) ([]evaluator.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT override_hour, is_active FROM active_hours_overrides
		WHERE user_id = ? AND override_date = ?
		ORDER BY override_hour`, userID, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []evaluator.Override
	for rows.Next() {
		var o evaluator.Override
		if err := rows.Scan(&o.Hour, &o.IsActive); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// SetOverride records a manual correction for one hour of one day.
func (s *Store) SetOverride(ctx context.Context, userID int64, date time.Time, hour int, isActive bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_hours_overrides (user_id, override_date, override_hour, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, override_date, override_hour) DO UPDATE SET
		    is_active = excluded.is_active`,
		userID, date.Format(dateLayout), hour, isActive)
	return err
}

// CachedResponse returns the cached provider payload for the user if it is
// younger than maxAge, or ErrNotFound on a miss or stale entry.
func (s *Store) CachedResponse(ctx context.Context, userID int64, maxAge time.Duration, now time.Time) (string, error) {
	var (
		createdAt int64
		payload   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, payload FROM response_cache WHERE user_id = ?`, userID).
		Scan(&createdAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if now.Unix()-createdAt >= int64(maxAge/time.Second) {
		return "", ErrNotFound
	}
	return payload, nil
}

// PutCachedResponse overwrites the user's cached provider payload.
func (s *Store) PutCachedResponse(ctx context.Context, userID int64, payload string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO response_cache (user_id, created_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    created_at = excluded.created_at,
		    payload = excluded.payload`,
		userID, now.Unix(), payload)
	return err
}
