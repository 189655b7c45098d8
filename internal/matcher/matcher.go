// Package matcher resolves local catalog tracks against the scrobbling
// service's catalog, by exact lookup first and fuzzy search as a fallback.
package matcher

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/syncfm/internal/retry"
	"github.com/jfmyers9/syncfm/pkg/lastfm"
)

// searchLimit bounds the number of fuzzy-search candidates considered.
const searchLimit = 10

// TrackAPI is the slice of the Last.fm client the matcher needs.
type TrackAPI interface {
	GetInfo(ctx context.Context, artist, track string) (*lastfm.TrackInfo, error)
	Search(ctx context.Context, artist, track string, limit int) ([]lastfm.SearchResult, error)
}

// Match is a resolved remote track with the user's playcount for it.
type Match struct {
	Artist    string
	Title     string
	Playcount int
}

// Matcher resolves (artist, title) pairs to remote tracks.
type Matcher struct {
	tracks    TrackAPI
	exec      *retry.Executor
	norms     *Normalizer
	threshold int
	log       zerolog.Logger
}

// New creates a matcher. threshold is the minimum token-sort score, 0-100,
// that BOTH the artist and the title of a search candidate must reach.
func New(tracks TrackAPI, exec *retry.Executor, norms *Normalizer, threshold int, log zerolog.Logger) *Matcher {
	return &Matcher{
		tracks:    tracks,
		exec:      exec,
		norms:     norms,
		threshold: threshold,
		log:       log.With().Str("component", "matcher").Logger(),
	}
}

// Resolve finds the remote track for a local (artist, title) pair.
//
// The exact lookup is tried first; when the service rejects it, the top
// search candidates are scored and the first one whose artist AND title
// both clear the threshold wins, provided its playcount is readable.
// Returns (nil, nil) when no acceptable match exists. The whole resolution
// runs under the matcher's retry executor, so transient failures inside
// either phase repeat the full flow.
func (m *Matcher) Resolve(ctx context.Context, artist, title string) (*Match, error) {
	return retry.Do(ctx, m.exec, func(ctx context.Context) (*Match, error) {
		return m.resolveOnce(ctx, artist, title)
	})
}

func (m *Matcher) resolveOnce(ctx context.Context, artist, title string) (*Match, error) {
	info, err := m.tracks.GetInfo(ctx, artist, title)
	if err == nil {
		return &Match{Artist: info.Artist, Title: info.Name, Playcount: info.UserPlaycount}, nil
	}
	if !isRejection(err) {
		return nil, err
	}

	m.log.Debug().
		Str("artist", artist).
		Str("title", title).
		Msg("Exact lookup rejected, falling back to search")

	results, err := m.tracks.Search(ctx, artist, title, searchLimit)
	if err != nil {
		return nil, err
	}

	wantArtist := m.norms.Normalize(artist)
	wantTitle := m.norms.Normalize(title)

	for _, candidate := range results {
		artistScore := TokenSortRatio(wantArtist, m.norms.Normalize(candidate.Artist))
		titleScore := TokenSortRatio(wantTitle, m.norms.Normalize(candidate.Name))
		if artistScore < m.threshold || titleScore < m.threshold {
			continue
		}

		info, err := m.tracks.GetInfo(ctx, candidate.Artist, candidate.Name)
		if err != nil {
			if isRejection(err) {
				// Candidate without a readable playcount, try the next one.
				m.log.Debug().
					Str("artist", candidate.Artist).
					Str("title", candidate.Name).
					Err(err).
					Msg("Skipping candidate with unreadable playcount")
				continue
			}
			return nil, err
		}

		m.log.Debug().
			Str("artist", candidate.Artist).
			Str("title", candidate.Name).
			Int("artist_score", artistScore).
			Int("title_score", titleScore).
			Msg("Accepted search candidate")
		return &Match{Artist: info.Artist, Title: info.Name, Playcount: info.UserPlaycount}, nil
	}

	return nil, nil
}

// isRejection reports whether err is a permanent API-level rejection of the
// request, as opposed to a transient or rate-limit condition that should
// bubble to the retry executor.
func isRejection(err error) bool {
	if retry.IsRetryable(err) {
		return false
	}
	var lfmErr *lastfm.Error
	return errors.As(err, &lfmErr)
}
