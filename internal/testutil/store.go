package testutil

import (
	"context"
	"testing"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedProfile inserts a profile with the given email and returns its ID.
func SeedProfile(t *testing.T, s *store.SQLiteStore, email string) string {
	t.Helper()

	p, err := s.CreateProfile(context.Background(), model.Profile{
		Email:        email,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seeding profile %s: %v", email, err)
	}
	return p.ID
}

// SeedTask inserts a task for userID and returns the stored row.
func SeedTask(t *testing.T, s *store.SQLiteStore, task model.Task) model.Task {
	t.Helper()

	created, err := s.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("seeding task %q: %v", task.Title, err)
	}
	return *created
}
