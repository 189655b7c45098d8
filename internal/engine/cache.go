// Package engine drives the reconciliation run: it owns the candidate
// pool, the per-run playcount cache and the scrobble emitter, and walks
// the pool until a terminal state is reached. All state is in-memory and
// scoped to a single run.
package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/matcher"
)

// Resolver is the slice of the track matcher the cache needs.
type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (*matcher.Match, error)
}

// Playcount is the cached remote state for one track.
type Playcount struct {
	Remote           int
	ScrobbledThisRun int
}

// Effective is the remote playcount as it will read once this run's
// scrobbles have landed.
func (p Playcount) Effective() int {
	return p.Remote + p.ScrobbledThisRun
}

type cacheEntry struct {
	noRemoteData bool
	playcount    Playcount
}

// PlaycountCache lazily resolves tracks against the remote service and
// caches the outcome for the rest of the run. Keys are the normalized
// (artist, title) pair, so catalog rows differing only in case or
// whitespace share one entry.
//
// Not safe for concurrent use; the reconciliation loop is single-threaded.
type PlaycountCache struct {
	resolver Resolver
	norms    *matcher.Normalizer
	entries  map[string]*cacheEntry
	log      zerolog.Logger
}

// NewPlaycountCache creates an empty cache backed by the given resolver.
func NewPlaycountCache(resolver Resolver, norms *matcher.Normalizer, log zerolog.Logger) *PlaycountCache {
	return &PlaycountCache{
		resolver: resolver,
		norms:    norms,
		entries:  make(map[string]*cacheEntry),
		log:      log.With().Str("component", "cache").Logger(),
	}
}

// Lookup returns the remote playcount state for a track, resolving it on
// first access. ok is false when the track has no usable remote data: the
// matcher found nothing, or resolution failed after its retry budget. A
// failed resolution is cached as no-remote-data for the rest of the run.
// The error return is reserved for context cancellation.
func (c *PlaycountCache) Lookup(ctx context.Context, artist, title string) (Playcount, bool, error) {
	key := c.norms.Key(artist, title)

	entry, found := c.entries[key]
	if !found {
		entry = c.resolve(ctx, artist, title)
		if entry == nil {
			return Playcount{}, false, ctx.Err()
		}
		c.entries[key] = entry
	}

	if entry.noRemoteData {
		return Playcount{}, false, nil
	}
	return entry.playcount, true, nil
}

// resolve performs the first-access matcher call. Returns nil only when
// the context was cancelled, leaving the cache untouched.
func (c *PlaycountCache) resolve(ctx context.Context, artist, title string) *cacheEntry {
	match, err := c.resolver.Resolve(ctx, artist, title)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().
			Str("artist", artist).
			Str("title", title).
			Err(err).
			Msg("Track resolution failed, treating as no remote data")
		return &cacheEntry{noRemoteData: true}
	}
	if match == nil {
		c.log.Debug().
			Str("artist", artist).
			Str("title", title).
			Msg("No remote match for track")
		return &cacheEntry{noRemoteData: true}
	}
	return &cacheEntry{playcount: Playcount{Remote: match.Playcount}}
}

// RecordScrobble counts one successful scrobble against the track's entry.
// The entry must exist with remote data; anything else is a caller bug.
func (c *PlaycountCache) RecordScrobble(artist, title string) {
	key := c.norms.Key(artist, title)
	entry, ok := c.entries[key]
	if !ok || entry.noRemoteData {
		panic("engine: RecordScrobble for track without remote data")
	}
	entry.playcount.ScrobbledThisRun++
}
