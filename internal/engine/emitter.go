package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jfmyers9/syncfm/internal/retry"
	"github.com/jfmyers9/syncfm/pkg/lastfm"
)

// Timestamps are drawn uniformly from [now-24h, now-1m] so a run reads
// like a day of listening instead of a burst.
const (
	timestampMaxAge = 24 * time.Hour
	timestampMinAge = time.Minute
)

// ScrobbleAPI is the slice of the Last.fm client the emitter needs.
type ScrobbleAPI interface {
	Scrobble(ctx context.Context, track lastfm.Track, timestamp time.Time) (*lastfm.ScrobbleResponse, error)
}

// Emitter submits synthetic scrobbles, paced to stay inside the remote
// service's request budget.
type Emitter struct {
	scrobbles ScrobbleAPI
	exec      *retry.Executor
	limiter   *rate.Limiter
	rng       *rand.Rand
	now       func() time.Time
	log       zerolog.Logger
}

// NewEmitter creates an emitter. pacing is the minimum interval between
// submitted scrobbles; zero disables pacing.
func NewEmitter(scrobbles ScrobbleAPI, exec *retry.Executor, pacing time.Duration, rng *rand.Rand, log zerolog.Logger) *Emitter {
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &Emitter{
		scrobbles: scrobbles,
		exec:      exec,
		limiter:   rate.NewLimiter(limit, 1),
		rng:       rng,
		now:       time.Now,
		log:       log.With().Str("component", "emitter").Logger(),
	}
}

// Emit submits one scrobble for (artist, title) with a randomized
// timestamp and returns that timestamp. In dry-run mode nothing is sent
// and no pacing applies. Submission runs under the emitter's retry
// executor; an exhausted budget surfaces as an error and the caller
// decides whether to try the track again later.
func (e *Emitter) Emit(ctx context.Context, artist, title string, dryRun bool) (time.Time, error) {
	timestamp := e.randomTimestamp()

	if dryRun {
		e.log.Info().
			Str("artist", artist).
			Str("title", title).
			Time("timestamp", timestamp).
			Msg("Dry run, would scrobble")
		return timestamp, nil
	}

	track := lastfm.Track{Artist: artist, Track: title}
	resp, err := retry.Do(ctx, e.exec, func(ctx context.Context) (*lastfm.ScrobbleResponse, error) {
		return e.scrobbles.Scrobble(ctx, track, timestamp)
	})
	if err != nil {
		return time.Time{}, err
	}

	if resp.Ignored > 0 {
		e.log.Warn().
			Str("artist", artist).
			Str("title", title).
			Int("code", resp.IgnoredMessage.Code).
			Str("reason", resp.IgnoredMessage.Text).
			Msg("Scrobble ignored by service")
	} else {
		e.log.Info().
			Str("artist", artist).
			Str("title", title).
			Time("timestamp", timestamp).
			Msg("Scrobbled")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return time.Time{}, err
	}
	return timestamp, nil
}

// randomTimestamp draws a uniform timestamp between 24 hours and 1 minute
// before now.
func (e *Emitter) randomTimestamp() time.Time {
	span := int64(timestampMaxAge - timestampMinAge)
	offset := timestampMinAge + time.Duration(e.rng.Int63n(span))
	return e.now().Add(-offset)
}
