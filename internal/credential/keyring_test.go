package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestKeyring_ArrayBackend(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	k := &Keyring{open: func() (keyring.Keyring, error) { return ring, nil }}

	if _, err := k.Get("session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	if err := k.Set("session", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := k.Get("session")
	if err != nil || got != "abc" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := k.Delete("session"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := k.Delete("session"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	_ = m.Set("k", "v")
	if got, _ := m.Get("k"); got != "v" {
		t.Fatalf("Get = %q", got)
	}
}
