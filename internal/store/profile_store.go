package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// CreateProfile inserts a new profile. Emails are stored lower-cased.
func (s *SQLiteStore) CreateProfile(
	ctx context.Context,
	profile model.Profile,
) (*model.Profile, error) {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.Email == "" {
		return nil, fmt.Errorf("profile email must not be empty")
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	now := s.timestamp()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Email, profile.FullName, profile.PasswordHash,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return s.GetProfile(ctx, profile.ID)
}

// GetProfile retrieves a profile by ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.GetContext(ctx, &profile,
		"SELECT * FROM profiles WHERE id = ?", id); err != nil {
		return nil, notFound(err, "getting profile %s", id)
	}
	return &profile, nil
}

// GetProfileByEmail retrieves a profile by its (case-insensitive) email.
func (s *SQLiteStore) GetProfileByEmail(
	ctx context.Context,
	email string,
) (*model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var profile model.Profile
	if err := s.db.GetContext(ctx, &profile,
		"SELECT * FROM profiles WHERE email = ?", email); err != nil {
		return nil, notFound(err, "getting profile for %s", email)
	}
	return &profile, nil
}
