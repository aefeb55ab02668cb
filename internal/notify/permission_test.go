package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeNotifier struct {
	mu      sync.Mutex
	answer  Permission
	err     error
	prompts int
	shown   []Display
	showErr error
}

func (f *fakeNotifier) RequestPermission(context.Context) (Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts++
	return f.answer, f.err
}

func (f *fakeNotifier) Show(_ context.Context, d Display) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, d)
	return f.showErr
}

func (f *fakeNotifier) displays() []Display {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Display(nil), f.shown...)
}

func TestGate_DeniedNeverPromptsAgain(t *testing.T) {
	n := &fakeNotifier{answer: PermissionDenied}
	g := NewGate(n, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if g.RequestPermission(ctx) {
			t.Fatalf("expected denied on call %d", i+1)
		}
	}
	if n.prompts != 1 {
		t.Fatalf("expected a single prompt; got %d", n.prompts)
	}
	if g.Permission() != PermissionDenied {
		t.Fatalf("state = %s", g.Permission())
	}

	g.Show(ctx, Display{Title: "x"})
	if len(n.displays()) != 0 {
		t.Fatalf("expected nothing displayed without permission")
	}
}

func TestGate_GrantedShows(t *testing.T) {
	n := &fakeNotifier{answer: PermissionGranted, showErr: errors.New("ignored")}
	g := NewGate(n, nil)
	ctx := context.Background()

	g.Show(ctx, Display{Title: "before"})
	if !g.RequestPermission(ctx) || !g.RequestPermission(ctx) {
		t.Fatalf("expected granted")
	}
	if n.prompts != 1 {
		t.Fatalf("expected a single prompt; got %d", n.prompts)
	}

	g.Show(ctx, Display{Title: "after"})
	shown := n.displays()
	if len(shown) != 1 || shown[0].Title != "after" {
		t.Fatalf("unexpected displays: %+v", shown)
	}

	g.Revoke()
	if g.Granted() {
		t.Fatalf("expected revoked gate to be denied")
	}
}

func TestGate_PromptErrorStaysDefault(t *testing.T) {
	n := &fakeNotifier{err: errors.New("no display server")}
	g := NewGate(n, nil)

	if g.RequestPermission(context.Background()) {
		t.Fatalf("expected false on prompt error")
	}
	if g.Permission() != PermissionDefault {
		t.Fatalf("state = %s; want default", g.Permission())
	}
}

func TestGate_NilNotifierUnsupported(t *testing.T) {
	g := NewGate(nil, nil)
	if g.RequestPermission(context.Background()) || g.Permission() != PermissionUnsupported {
		t.Fatalf("expected unsupported gate")
	}
	g.Show(context.Background(), Display{Title: "x"})
}

func TestFanout(t *testing.T) {
	denied := &fakeNotifier{answer: PermissionDenied}
	granted := &fakeNotifier{answer: PermissionGranted, showErr: errors.New("down")}
	ctx := context.Background()

	if p, _ := (Fanout{denied, denied}).RequestPermission(ctx); p != PermissionDenied {
		t.Fatalf("all denied: got %s", p)
	}
	if p, _ := (Fanout{denied, granted}).RequestPermission(ctx); p != PermissionGranted {
		t.Fatalf("one granted: got %s", p)
	}

	err := Fanout{denied, granted}.Show(ctx, Display{Title: "x"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(denied.displays()) != 1 || len(granted.displays()) != 1 {
		t.Fatalf("expected display on every notifier")
	}
}

func TestThrottled(t *testing.T) {
	next := &fakeNotifier{answer: PermissionGranted}
	th := NewThrottled(next, 2, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := th.Show(ctx, Display{Title: "x"}); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}
	if got := len(next.displays()); got != 2 {
		t.Fatalf("expected burst of 2 displays; got %d", got)
	}

	unlimited := NewThrottled(next, 0, nil)
	for i := 0; i < 5; i++ {
		_ = unlimited.Show(ctx, Display{Title: "y"})
	}
	if got := len(next.displays()); got != 7 {
		t.Fatalf("expected unthrottled displays; got %d", got)
	}
}
