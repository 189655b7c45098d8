package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/matcher"
	"github.com/jfmyers9/syncfm/internal/retry"
)

// recordedScrobble is one journal entry captured by the fake recorder.
type recordedScrobble struct {
	artist    string
	title     string
	timestamp time.Time
	dryRun    bool
}

type fakeRecorder struct {
	entries []recordedScrobble
}

func (f *fakeRecorder) Record(artist, title string, timestamp time.Time, dryRun bool) error {
	f.entries = append(f.entries, recordedScrobble{artist, title, timestamp, dryRun})
	return nil
}

func defaultOptions() Options {
	return Options{
		PerTrackRunLimit: 3,
		TrackTotalLimit:  100,
		FailureLimit:     3,
	}
}

// newTestEngine wires an engine over fakes. The scrobble API's failure
// budget and the resolver script are controlled by the caller.
func newTestEngine(pool []Track, resolver Resolver, api ScrobbleAPI, recorder Recorder, opts Options) *Engine {
	norms := matcher.NewNormalizer()
	cache := NewPlaycountCache(resolver, norms, zerolog.Nop())
	exec := retry.NewExecutor(retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, Factor: 2}, zerolog.Nop())
	emitter := NewEmitter(api, exec, 0, rand.New(rand.NewSource(42)), zerolog.Nop())
	return New(pool, cache, emitter, norms, recorder, opts, rand.New(rand.NewSource(42)), zerolog.Nop())
}

// TestEngine_ClosesGap tests the core scenario: local=10, remote=7,
// per-run cap 3 means exactly 3 scrobbles, then the track is removed.
func TestEngine_ClosesGap(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 7,
	}
	api := &fakeScrobbleAPI{}
	recorder := &fakeRecorder{}

	pool := []Track{{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 10}}
	e := newTestEngine(pool, resolver, api, recorder, defaultOptions())

	summary := e.Run(context.Background())

	if summary.State != Done {
		t.Errorf("expected Done, got %v", summary.State)
	}
	if summary.Scrobbled != 3 {
		t.Errorf("expected 3 scrobbles, got %d", summary.Scrobbled)
	}
	if summary.Removed != 1 {
		t.Errorf("expected 1 removal, got %d", summary.Removed)
	}
	if len(recorder.entries) != 3 {
		t.Errorf("expected 3 journal entries, got %d", len(recorder.entries))
	}
}

// TestEngine_PerRunCapBindsBeforeGap tests that the per-run cap limits a
// large gap.
func TestEngine_PerRunCapBindsBeforeGap(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 0,
	}
	api := &fakeScrobbleAPI{}

	pool := []Track{{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 50}}
	e := newTestEngine(pool, resolver, api, nil, defaultOptions())

	summary := e.Run(context.Background())
	if summary.Scrobbled != 3 {
		t.Errorf("expected per-run cap of 3, got %d", summary.Scrobbled)
	}
	if summary.State != Done {
		t.Errorf("expected Done, got %v", summary.State)
	}
}

// TestEngine_AlreadyCaughtUp tests that a track at or above its local
// count is removed without any scrobble.
func TestEngine_AlreadyCaughtUp(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 12,
	}
	api := &fakeScrobbleAPI{}

	pool := []Track{{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 10}}
	e := newTestEngine(pool, resolver, api, nil, defaultOptions())

	summary := e.Run(context.Background())
	if summary.Scrobbled != 0 {
		t.Errorf("expected no scrobbles, got %d", summary.Scrobbled)
	}
	if summary.Removed != 1 {
		t.Errorf("expected 1 removal, got %d", summary.Removed)
	}
	if api.calls != 0 {
		t.Errorf("expected no submissions, got %d", api.calls)
	}
}

// TestEngine_NoRemoteData tests that unresolvable tracks are skipped and
// the run continues, including after a permanent auth-style failure.
func TestEngine_NoRemoteData(t *testing.T) {
	resolver := newFakeResolver()
	resolver.errs["Broken|Track"] = errors.New("invalid api key")
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 9,
	}
	api := &fakeScrobbleAPI{}

	pool := []Track{
		{Artist: "Broken", Title: "Track", LocalPlaycount: 5},
		{Artist: "Unknown", Title: "Song", LocalPlaycount: 5},
		{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 10},
	}
	e := newTestEngine(pool, resolver, api, nil, defaultOptions())

	summary := e.Run(context.Background())
	if summary.State != Done {
		t.Errorf("expected Done, got %v", summary.State)
	}
	if summary.Scrobbled != 1 {
		t.Errorf("expected 1 scrobble for the resolvable track, got %d", summary.Scrobbled)
	}
	if summary.Removed != 3 {
		t.Errorf("expected all 3 tracks removed, got %d", summary.Removed)
	}
}

// TestEngine_LifetimeCap tests that the lifetime cap blocks tracks whose
// remote count is already high.
func TestEngine_LifetimeCap(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["Heavy|Rotation"] = &matcher.Match{
		Artist: "Heavy", Title: "Rotation", Playcount: 150,
	}
	api := &fakeScrobbleAPI{}

	pool := []Track{{Artist: "Heavy", Title: "Rotation", LocalPlaycount: 200}}
	e := newTestEngine(pool, resolver, api, nil, defaultOptions())

	summary := e.Run(context.Background())
	if summary.Scrobbled != 0 {
		t.Errorf("expected no scrobbles past the lifetime cap, got %d", summary.Scrobbled)
	}
	if summary.Removed != 1 {
		t.Errorf("expected 1 removal, got %d", summary.Removed)
	}
}

// TestEngine_RunWideCap tests the LimitReached terminal state.
func TestEngine_RunWideCap(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["A|One"] = &matcher.Match{Artist: "A", Title: "One", Playcount: 0}
	resolver.matches["B|Two"] = &matcher.Match{Artist: "B", Title: "Two", Playcount: 0}
	api := &fakeScrobbleAPI{}

	opts := defaultOptions()
	opts.MaxScrobbles = 2

	pool := []Track{
		{Artist: "A", Title: "One", LocalPlaycount: 10},
		{Artist: "B", Title: "Two", LocalPlaycount: 10},
	}
	e := newTestEngine(pool, resolver, api, nil, opts)

	summary := e.Run(context.Background())
	if summary.State != LimitReached {
		t.Errorf("expected LimitReached, got %v", summary.State)
	}
	if summary.Scrobbled != 2 {
		t.Errorf("expected 2 scrobbles, got %d", summary.Scrobbled)
	}
}

// TestEngine_FailureLimit tests that a persistently failing track is
// eventually dropped instead of live-locking the run.
func TestEngine_FailureLimit(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["Cursed|Song"] = &matcher.Match{
		Artist: "Cursed", Title: "Song", Playcount: 0,
	}
	api := &fakeScrobbleAPI{failures: 1 << 30}

	pool := []Track{{Artist: "Cursed", Title: "Song", LocalPlaycount: 10}}
	e := newTestEngine(pool, resolver, api, nil, defaultOptions())

	summary := e.Run(context.Background())
	if summary.State != Done {
		t.Errorf("expected Done, got %v", summary.State)
	}
	if summary.Scrobbled != 0 {
		t.Errorf("expected no scrobbles, got %d", summary.Scrobbled)
	}
	if summary.Removed != 1 {
		t.Errorf("expected the failing track to be dropped, got %d removals", summary.Removed)
	}
	// 3 loop-level failures, each burning a 2-attempt retry budget.
	if api.calls != 6 {
		t.Errorf("expected 6 submission attempts, got %d", api.calls)
	}
}

// TestEngine_DryRun tests that dry-run counts and journals but never
// submits.
func TestEngine_DryRun(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 7,
	}
	api := &fakeScrobbleAPI{}
	recorder := &fakeRecorder{}

	opts := defaultOptions()
	opts.DryRun = true

	pool := []Track{{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 10}}
	e := newTestEngine(pool, resolver, api, recorder, opts)

	summary := e.Run(context.Background())
	if summary.Scrobbled != 3 {
		t.Errorf("expected 3 dry-run scrobbles, got %d", summary.Scrobbled)
	}
	if api.calls != 0 {
		t.Errorf("dry run must not submit, got %d calls", api.calls)
	}
	for _, entry := range recorder.entries {
		if !entry.dryRun {
			t.Errorf("journal entry not marked dry-run: %+v", entry)
		}
	}
}

// TestEngine_Cancellation tests the Cancelled terminal state.
func TestEngine_Cancellation(t *testing.T) {
	resolver := newFakeResolver()
	resolver.matches["The Beatles|Yesterday"] = &matcher.Match{
		Artist: "The Beatles", Title: "Yesterday", Playcount: 0,
	}
	api := &fakeScrobbleAPI{}

	pool := []Track{{Artist: "The Beatles", Title: "Yesterday", LocalPlaycount: 1000}}
	opts := defaultOptions()
	opts.PerTrackRunLimit = 1000

	e := newTestEngine(pool, resolver, api, nil, opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := e.Run(ctx)
	if summary.State != Cancelled {
		t.Errorf("expected Cancelled, got %v", summary.State)
	}
	if summary.Scrobbled != 0 {
		t.Errorf("expected no scrobbles after cancellation, got %d", summary.Scrobbled)
	}
}

// TestEngine_TerminationBound tests that a run over a mixed pool finishes
// within the poolSize + runWideCap step bound when nothing fails.
func TestEngine_TerminationBound(t *testing.T) {
	resolver := newFakeResolver()
	api := &fakeScrobbleAPI{}

	var pool []Track
	names := []string{"One", "Two", "Three", "Four", "Five"}
	for _, n := range names {
		resolver.matches["Artist|"+n] = &matcher.Match{Artist: "Artist", Title: n, Playcount: 0}
		pool = append(pool, Track{Artist: "Artist", Title: n, LocalPlaycount: 2})
	}

	e := newTestEngine(pool, resolver, api, nil, defaultOptions())
	summary := e.Run(context.Background())

	if summary.State != Done {
		t.Errorf("expected Done, got %v", summary.State)
	}
	// Each track needs 2 scrobbles and 1 removal, plus the final
	// empty-pool check.
	if summary.Scrobbled != 10 {
		t.Errorf("expected 10 scrobbles, got %d", summary.Scrobbled)
	}
	maxSteps := len(names)*3 + 1
	if summary.Steps > maxSteps {
		t.Errorf("run took %d steps, bound is %d", summary.Steps, maxSteps)
	}
}
