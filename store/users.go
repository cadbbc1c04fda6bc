package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an account row. PasswdHash is a bcrypt hash and never leaves
// the server; EmailToken is the one-shot email validation token.
type User struct {
	ID            int64
	Username      string
	Email         string
	EmailVerified bool
	EmailToken    string
	PasswdHash    []byte
}

// CreateUser inserts a new account. Duplicate usernames or emails yield
// ErrConflict.
func (s *Store) CreateUser(ctx context.Context, username, email string, passwdHash []byte, emailToken string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, email_verified, email_token, passwd_hash) VALUES (?, ?, 0, ?, ?)`,
		username, email, emailToken, passwdHash)
	if err != nil {
		return 0, mapConflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UserByName looks an account up by username.
func (s *Store) UserByName(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, email_verified, email_token, passwd_hash FROM users WHERE username = ?`, username))
}

// UserByID looks an account up by id.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, email_verified, email_token, passwd_hash FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.EmailVerified, &u.EmailToken, &u.PasswdHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyEmail marks the account holding the given validation token as
// verified and returns its id. An unknown token yields ErrNotFound.
func (s *Store) VerifyEmail(ctx context.Context, emailToken string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email_token = ?`, emailToken).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET email_verified = 1 WHERE id = ?`, id)
	return id, err
}

// UserUpdate carries optional field changes; nil means keep the current value.
type UserUpdate struct {
	Username   *string
	Email      *string
	PasswdHash []byte
}

// UpdateUser applies the non-nil fields of upd to the account.
func (s *Store) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswdHash != nil {
		u.PasswdHash = upd.PasswdHash
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, passwd_hash = ? WHERE id = ?`,
		u.Username, u.Email, u.PasswdHash, id)
	return mapConflict(err)
}

// CreateToken stores an opaque bearer token for the user.
func (s *Store) CreateToken(ctx context.Context, token string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().Unix())
	return err
}

// UserIDForToken resolves a bearer token to a user id.
func (s *Store) UserIDForToken(ctx context.Context, token string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}
