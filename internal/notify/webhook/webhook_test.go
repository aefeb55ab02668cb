package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nhle/taskflow/internal/notify"
)

func TestShow_PostsPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Show(context.Background(), notify.Display{
		Title: "Task Overdue", Body: "late", Tag: "task-overdue-1", RequireInteraction: true,
	})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if got.Title != "Task Overdue" || got.Tag != "task-overdue-1" || !got.RequireInteraction {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestShow_RetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := New(srv.URL).Show(context.Background(), notify.Display{Title: "x"}); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls; got %d", calls)
	}
}

func TestShow_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := New(srv.URL).Show(context.Background(), notify.Display{Title: "x"}); err == nil {
		t.Fatalf("expected error for 400")
	}
}

func TestRequestPermission(t *testing.T) {
	if p, _ := New("").RequestPermission(context.Background()); p != notify.PermissionDenied {
		t.Fatalf("expected denied without url; got %s", p)
	}
	if p, _ := New("http://example.invalid").RequestPermission(context.Background()); p != notify.PermissionGranted {
		t.Fatalf("expected granted with url; got %s", p)
	}
}
