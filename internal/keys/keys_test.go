package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func TestDefaultKeyMap_NoDuplicateKeys(t *testing.T) {
	k := DefaultKeyMap()
	seen := map[string]string{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			for _, s := range b.Keys() {
				if prev, ok := seen[s]; ok {
					t.Fatalf("key %q bound to both %q and %q", s, prev, b.Help().Desc)
				}
				seen[s] = b.Help().Desc
			}
		}
	}
}

func TestDefaultKeyMap_Matches(t *testing.T) {
	k := DefaultKeyMap()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("A")}
	if !key.Matches(msg, k.ReadAll) {
		t.Fatalf("expected A to match mark-all-read")
	}
	if key.Matches(msg, k.Read) {
		t.Fatalf("A must not match mark-read")
	}
}
