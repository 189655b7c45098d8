package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/matcher"
)

// State is the reconciliation loop's lifecycle state.
type State int

const (
	// Running is the non-terminal working state.
	Running State = iota
	// Done means the candidate pool was drained.
	Done
	// LimitReached means the run-wide scrobble cap was hit.
	LimitReached
	// Cancelled means the run context was cancelled and the loop stopped
	// at the next step boundary.
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case LimitReached:
		return "limit-reached"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Track is one candidate from the local catalog.
type Track struct {
	Artist         string
	Title          string
	LocalPlaycount int
}

// Options configures a run.
type Options struct {
	// PerTrackRunLimit caps scrobbles per track in a single run.
	PerTrackRunLimit int

	// TrackTotalLimit is the lifetime cap: a track whose effective remote
	// count is at or above this gets no further synthetic scrobbles.
	TrackTotalLimit int

	// MaxScrobbles caps scrobbles across the whole run; zero means
	// unlimited.
	MaxScrobbles int

	// FailureLimit drops a track from the pool after this many
	// consecutive emission failures; zero disables the guard.
	FailureLimit int

	// DryRun suppresses network writes.
	DryRun bool
}

// Recorder persists each emitted scrobble for later inspection.
type Recorder interface {
	Record(artist, title string, timestamp time.Time, dryRun bool) error
}

// Summary describes a finished run.
type Summary struct {
	State     State
	Scrobbled int
	Removed   int
	Steps     int
	Elapsed   time.Duration
}

// Engine reconciles local playcounts against the remote service. It owns
// the candidate pool and mutates it, the cache, and the run counters
// strictly sequentially.
type Engine struct {
	pool     []Track
	cache    *PlaycountCache
	emitter  *Emitter
	norms    *matcher.Normalizer
	recorder Recorder
	opts     Options
	rng      *rand.Rand
	log      zerolog.Logger

	failures map[string]int
}

// New creates an engine seeded with the candidate pool. recorder may be
// nil. The pool slice is owned by the engine from here on.
func New(pool []Track, cache *PlaycountCache, emitter *Emitter, norms *matcher.Normalizer, recorder Recorder, opts Options, rng *rand.Rand, log zerolog.Logger) *Engine {
	return &Engine{
		pool:     pool,
		cache:    cache,
		emitter:  emitter,
		norms:    norms,
		recorder: recorder,
		opts:     opts,
		rng:      rng,
		log:      log.With().Str("component", "engine").Logger(),
		failures: make(map[string]int),
	}
}

// Run walks the pool until a terminal state is reached and returns the
// run summary. Each step draws one candidate uniformly at random, removes
// it if ineligible, or emits one scrobble for it. A candidate whose
// emission fails stays in the pool for a later draw, unless it keeps
// failing past the failure limit.
func (e *Engine) Run(ctx context.Context) Summary {
	start := time.Now()
	var summary Summary

	state := Running
	for state == Running {
		state = e.step(ctx, &summary)
		summary.Steps++
	}

	summary.State = state
	summary.Elapsed = time.Since(start)

	e.log.Info().
		Stringer("state", state).
		Int("scrobbled", summary.Scrobbled).
		Int("removed", summary.Removed).
		Int("steps", summary.Steps).
		Dur("elapsed", summary.Elapsed).
		Msg("Run finished")
	return summary
}

// step performs one loop iteration and returns the next state.
func (e *Engine) step(ctx context.Context, summary *Summary) State {
	if ctx.Err() != nil {
		return Cancelled
	}
	if len(e.pool) == 0 {
		return Done
	}
	if e.opts.MaxScrobbles > 0 && summary.Scrobbled >= e.opts.MaxScrobbles {
		return LimitReached
	}

	i := e.rng.Intn(len(e.pool))
	track := e.pool[i]

	playcount, ok, err := e.cache.Lookup(ctx, track.Artist, track.Title)
	if err != nil {
		return Cancelled
	}

	if !e.eligible(track, playcount, ok) {
		e.remove(i)
		summary.Removed++
		return Running
	}

	timestamp, err := e.emitter.Emit(ctx, track.Artist, track.Title, e.opts.DryRun)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled
		}
		key := e.norms.Key(track.Artist, track.Title)
		e.failures[key]++
		e.log.Warn().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Int("consecutive_failures", e.failures[key]).
			Err(err).
			Msg("Scrobble emission failed, track stays in pool")
		if e.opts.FailureLimit > 0 && e.failures[key] >= e.opts.FailureLimit {
			e.log.Warn().
				Str("artist", track.Artist).
				Str("title", track.Title).
				Msg("Failure limit reached, dropping track for this run")
			e.remove(i)
			summary.Removed++
		}
		return Running
	}

	delete(e.failures, e.norms.Key(track.Artist, track.Title))
	e.cache.RecordScrobble(track.Artist, track.Title)
	summary.Scrobbled++

	if e.recorder != nil {
		if err := e.recorder.Record(track.Artist, track.Title, timestamp, e.opts.DryRun); err != nil {
			e.log.Warn().Err(err).Msg("Failed to journal scrobble")
		}
	}
	return Running
}

// eligible applies the removal rules: a track is kept only while remote
// data exists and every cap still has headroom.
func (e *Engine) eligible(track Track, playcount Playcount, hasRemote bool) bool {
	if !hasRemote {
		return false
	}
	if playcount.Effective() >= track.LocalPlaycount {
		return false
	}
	if playcount.ScrobbledThisRun >= e.opts.PerTrackRunLimit {
		return false
	}
	if playcount.Effective() >= e.opts.TrackTotalLimit {
		return false
	}
	return true
}

// remove drops pool[i] by swapping in the last element.
func (e *Engine) remove(i int) {
	e.pool[i] = e.pool[len(e.pool)-1]
	e.pool = e.pool[:len(e.pool)-1]
}
