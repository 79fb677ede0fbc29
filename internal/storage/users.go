package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyLogin is returned when an identity carries no login name.
var ErrEmptyLogin = errors.New("empty login")

// normalizeLogin trims and lowercases a Tailscale login so the same person
// maps to one users row however the control plane capitalizes it.
func normalizeLogin(login string) (string, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return "", ErrEmptyLogin
	}
	return login, nil
}

// GetOrCreateUser upserts a user by login and returns its ID. A non-empty
// displayName replaces the stored one; last_seen is bumped on every call.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	login, err := normalizeLogin(login)
	if err != nil {
		return 0, err
	}
	var id int
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name)
		RETURNING id
	`, login, strings.TrimSpace(displayName)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}
