package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/retry"
	"github.com/jfmyers9/syncfm/pkg/lastfm"
)

// fakeTrackAPI scripts GetInfo and Search responses per (artist, track).
type fakeTrackAPI struct {
	infos       map[string]*lastfm.TrackInfo
	infoErrs    map[string]error
	searches    []lastfm.SearchResult
	searchErr   error
	infoCalls   int
	searchCalls int
}

func key(artist, track string) string { return artist + "|" + track }

func (f *fakeTrackAPI) GetInfo(ctx context.Context, artist, track string) (*lastfm.TrackInfo, error) {
	f.infoCalls++
	if err, ok := f.infoErrs[key(artist, track)]; ok {
		return nil, err
	}
	if info, ok := f.infos[key(artist, track)]; ok {
		return info, nil
	}
	return nil, &lastfm.Error{Code: lastfm.ErrCodeInvalidParameters, Message: "Track not found"}
}

func (f *fakeTrackAPI) Search(ctx context.Context, artist, track string, limit int) ([]lastfm.SearchResult, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searches, nil
}

func newTestMatcher(api TrackAPI, threshold int) *Matcher {
	exec := retry.NewExecutor(retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Factor:       2,
	}, zerolog.Nop())
	return New(api, exec, NewNormalizer(), threshold, zerolog.Nop())
}

// TestMatcher_ExactHit tests resolution via exact lookup.
func TestMatcher_ExactHit(t *testing.T) {
	api := &fakeTrackAPI{
		infos: map[string]*lastfm.TrackInfo{
			key("The Beatles", "Yesterday"): {Artist: "The Beatles", Name: "Yesterday", UserPlaycount: 42},
		},
	}
	m := newTestMatcher(api, 85)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Artist != "The Beatles" || match.Title != "Yesterday" || match.Playcount != 42 {
		t.Errorf("unexpected match: %+v", match)
	}
	if api.searchCalls != 0 {
		t.Errorf("exact hit must not search, got %d search calls", api.searchCalls)
	}
}

// TestMatcher_SearchFallback tests the search path when the exact lookup
// is rejected.
func TestMatcher_SearchFallback(t *testing.T) {
	api := &fakeTrackAPI{
		infos: map[string]*lastfm.TrackInfo{
			key("The Beatles", "Yesterday (Remastered)"): {
				Artist: "The Beatles", Name: "Yesterday (Remastered)", UserPlaycount: 7,
			},
		},
		searches: []lastfm.SearchResult{
			{Artist: "The Beatles", Name: "Yesterday (Remastered)", Listeners: 100000},
		},
	}
	m := newTestMatcher(api, 70)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday Remastered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Playcount != 7 {
		t.Errorf("expected playcount 7, got %d", match.Playcount)
	}
	if api.searchCalls != 1 {
		t.Errorf("expected 1 search call, got %d", api.searchCalls)
	}
}

// TestMatcher_BothScoresRequired tests that a candidate with a matching
// title but a different artist is rejected.
func TestMatcher_BothScoresRequired(t *testing.T) {
	api := &fakeTrackAPI{
		infos: map[string]*lastfm.TrackInfo{
			key("Boyce Avenue", "Yesterday"): {Artist: "Boyce Avenue", Name: "Yesterday", UserPlaycount: 3},
		},
		searches: []lastfm.SearchResult{
			{Artist: "Boyce Avenue", Name: "Yesterday", Listeners: 5000},
		},
	}
	m := newTestMatcher(api, 85)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match != nil {
		t.Errorf("cover version must not match, got %+v", match)
	}
}

// TestMatcher_SkipsUnreadablePlaycount tests that a candidate whose
// playcount cannot be read is skipped in favor of the next one.
func TestMatcher_SkipsUnreadablePlaycount(t *testing.T) {
	api := &fakeTrackAPI{
		infos: map[string]*lastfm.TrackInfo{
			key("The Beatles", "yesterday"): {
				Artist: "The Beatles", Name: "yesterday", UserPlaycount: 9,
			},
		},
		infoErrs: map[string]error{
			key("The Beatles", "Yesterday"): &lastfm.Error{Code: lastfm.ErrCodeOperationFailed, Message: "Operation failed"},
		},
		searches: []lastfm.SearchResult{
			{Artist: "The Beatles", Name: "Yesterday", Listeners: 100000},
			{Artist: "The Beatles", Name: "yesterday", Listeners: 50000},
		},
	}
	m := newTestMatcher(api, 70)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil {
		t.Fatal("expected the second candidate to match")
	}
	if match.Playcount != 9 {
		t.Errorf("unexpected match: %+v", match)
	}
}

// TestMatcher_NoMatch tests the not-found result.
func TestMatcher_NoMatch(t *testing.T) {
	api := &fakeTrackAPI{
		searches: []lastfm.SearchResult{
			{Artist: "Someone Else", Name: "Something Else"},
		},
	}
	m := newTestMatcher(api, 85)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

// TestMatcher_TransientRetried tests that transient failures repeat the
// whole resolution.
func TestMatcher_TransientRetried(t *testing.T) {
	api := &flakyTrackAPI{
		failures: 2,
		info:     &lastfm.TrackInfo{Artist: "The Beatles", Name: "Yesterday", UserPlaycount: 4},
	}
	m := newTestMatcher(api, 85)

	match, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match == nil || match.Playcount != 4 {
		t.Fatalf("unexpected match: %+v", match)
	}
	if api.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", api.calls)
	}
}

// TestMatcher_TransientExhaustion tests that persistent transient failures
// surface after the retry budget.
func TestMatcher_TransientExhaustion(t *testing.T) {
	api := &flakyTrackAPI{failures: 10}
	m := newTestMatcher(api, 85)

	_, err := m.Resolve(context.Background(), "The Beatles", "Yesterday")
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if api.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", api.calls)
	}
}

// flakyTrackAPI fails GetInfo with a transient error a fixed number of
// times before succeeding.
type flakyTrackAPI struct {
	failures int
	calls    int
	info     *lastfm.TrackInfo
}

func (f *flakyTrackAPI) GetInfo(ctx context.Context, artist, track string) (*lastfm.TrackInfo, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, retry.Transient(errors.New("connection reset"))
	}
	return f.info, nil
}

func (f *flakyTrackAPI) Search(ctx context.Context, artist, track string, limit int) ([]lastfm.SearchResult, error) {
	return nil, nil
}
