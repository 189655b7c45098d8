package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/retry"
	"github.com/jfmyers9/syncfm/pkg/lastfm"
)

// fakeScrobbleAPI records submissions and fails the first n of them.
type fakeScrobbleAPI struct {
	failures  int
	calls     int
	submitted []lastfm.Scrobble
}

func (f *fakeScrobbleAPI) Scrobble(ctx context.Context, track lastfm.Track, timestamp time.Time) (*lastfm.ScrobbleResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, retry.Transient(errors.New("connection reset"))
	}
	f.submitted = append(f.submitted, lastfm.Scrobble{Track: track, Timestamp: timestamp})
	return &lastfm.ScrobbleResponse{Accepted: 1}, nil
}

func newTestEmitter(api ScrobbleAPI, attempts int) *Emitter {
	exec := retry.NewExecutor(retry.Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		Factor:       2,
	}, zerolog.Nop())
	return NewEmitter(api, exec, 0, rand.New(rand.NewSource(1)), zerolog.Nop())
}

// TestEmitter_TimestampRange tests that timestamps land between 24 hours
// and 1 minute before now.
func TestEmitter_TimestampRange(t *testing.T) {
	api := &fakeScrobbleAPI{}
	e := newTestEmitter(api, 5)

	now := time.Unix(1700000000, 0)
	e.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		ts, err := e.Emit(context.Background(), "The Beatles", "Yesterday", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ts.Before(now.Add(-time.Minute + time.Second)) {
			t.Fatalf("timestamp %v not at least 1 minute old", ts)
		}
		if ts.Before(now.Add(-24 * time.Hour)) {
			t.Fatalf("timestamp %v older than 24 hours", ts)
		}
	}
}

// TestEmitter_DryRun tests that dry-run emits nothing.
func TestEmitter_DryRun(t *testing.T) {
	api := &fakeScrobbleAPI{}
	e := newTestEmitter(api, 5)

	ts, err := e.Emit(context.Background(), "The Beatles", "Yesterday", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.IsZero() {
		t.Error("dry run must still report the planned timestamp")
	}
	if api.calls != 0 {
		t.Errorf("dry run must not submit, got %d calls", api.calls)
	}
}

// TestEmitter_RetriesTransient tests that submission retries within its
// budget.
func TestEmitter_RetriesTransient(t *testing.T) {
	api := &fakeScrobbleAPI{failures: 3}
	e := newTestEmitter(api, 5)

	if _, err := e.Emit(context.Background(), "The Beatles", "Yesterday", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.calls != 4 {
		t.Errorf("expected 4 attempts, got %d", api.calls)
	}
	if len(api.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(api.submitted))
	}
	if got := api.submitted[0].Track; got.Artist != "The Beatles" || got.Track != "Yesterday" {
		t.Errorf("unexpected submitted track: %+v", got)
	}
}

// TestEmitter_Exhaustion tests that a persistently failing submission
// surfaces an error.
func TestEmitter_Exhaustion(t *testing.T) {
	api := &fakeScrobbleAPI{failures: 100}
	e := newTestEmitter(api, 5)

	if _, err := e.Emit(context.Background(), "The Beatles", "Yesterday", false); err == nil {
		t.Fatal("expected error but got none")
	}
	if api.calls != 5 {
		t.Errorf("expected 5 attempts, got %d", api.calls)
	}
}
