package subsonic

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/jfmyers9/syncfm/internal/retry"
)

// LibraryService provides catalog enumeration operations.
type LibraryService struct {
	client *Client
}

// PlayedTracksOptions configures a PlayedTracks scan.
type PlayedTracksOptions struct {
	// PageSize is the number of albums requested per getAlbumList2 page.
	PageSize int

	// Workers bounds the number of concurrent getAlbum fetches.
	Workers int

	// Executor drives retries for each API call. When nil every call is
	// made exactly once.
	Executor *retry.Executor
}

const (
	defaultPageSize = 500
	defaultWorkers  = 5
)

// AlbumPage fetches one page of the album list, ordered alphabetically so
// that successive pages enumerate the catalog without overlap.
func (l *LibraryService) AlbumPage(ctx context.Context, offset, size int) ([]Album, error) {
	params := url.Values{}
	params.Set("type", "alphabeticalByName")
	params.Set("size", strconv.Itoa(size))
	params.Set("offset", strconv.Itoa(offset))

	resp, err := l.client.call(ctx, "getAlbumList2.view", params)
	if err != nil {
		return nil, err
	}
	if resp.AlbumList2 == nil {
		return nil, fmt.Errorf("subsonic: missing albumList2 in response")
	}
	return resp.AlbumList2.Albums, nil
}

// Album fetches a single album with its songs.
func (l *LibraryService) Album(ctx context.Context, id string) (*Album, error) {
	params := url.Values{}
	params.Set("id", id)

	resp, err := l.client.call(ctx, "getAlbum.view", params)
	if err != nil {
		return nil, err
	}
	if resp.Album == nil {
		return nil, fmt.Errorf("subsonic: missing album in response")
	}
	return resp.Album, nil
}

// PlayedTracks enumerates the whole library and returns every track with a
// local playcount greater than zero.
//
// Albums are listed page by page, then fetched concurrently by a bounded
// worker pool. The result set is unordered. A failure before anything was
// gathered is fatal; once part of the catalog is in hand, later failures
// degrade the scan to the partial set instead of losing the run.
func (l *LibraryService) PlayedTracks(ctx context.Context, opts PlayedTracksOptions) ([]PlayedTrack, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	albums, err := l.listAlbums(ctx, pageSize, opts.Executor)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, nil
	}

	songs, err := l.fetchAlbumSongs(ctx, albums, workers, opts.Executor)
	if err != nil {
		return nil, err
	}

	var tracks []PlayedTrack
	for _, s := range songs {
		if s.PlayCount > 0 {
			tracks = append(tracks, PlayedTrack{
				Artist:    s.Artist,
				Title:     s.Title,
				PlayCount: s.PlayCount,
			})
		}
	}
	return tracks, nil
}

// listAlbums pages through the album list until a short page signals the
// end of the catalog.
func (l *LibraryService) listAlbums(ctx context.Context, pageSize int, exec *retry.Executor) ([]Album, error) {
	var albums []Album
	offset := 0
	for {
		page, err := l.albumPageRetried(ctx, offset, pageSize, exec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if len(albums) == 0 {
				return nil, fmt.Errorf("failed to list albums: %w", err)
			}
			l.client.logDebugf("subsonic: album listing degraded to %d albums: %v", len(albums), err)
			return albums, nil
		}
		albums = append(albums, page...)
		if len(page) < pageSize {
			return albums, nil
		}
		offset += pageSize
	}
}

func (l *LibraryService) albumPageRetried(ctx context.Context, offset, size int, exec *retry.Executor) ([]Album, error) {
	if exec == nil {
		return l.AlbumPage(ctx, offset, size)
	}
	return retry.Do(ctx, exec, func(ctx context.Context) ([]Album, error) {
		return l.AlbumPage(ctx, offset, size)
	})
}

func (l *LibraryService) albumRetried(ctx context.Context, id string, exec *retry.Executor) (*Album, error) {
	if exec == nil {
		return l.Album(ctx, id)
	}
	return retry.Do(ctx, exec, func(ctx context.Context) (*Album, error) {
		return l.Album(ctx, id)
	})
}

// fetchAlbumSongs fans album fetches out over a bounded worker pool and
// collects every song, unordered.
func (l *LibraryService) fetchAlbumSongs(ctx context.Context, albums []Album, workers int, exec *retry.Executor) ([]Song, error) {
	type result struct {
		songs []Song
		err   error
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				album, err := l.albumRetried(ctx, id, exec)
				if err != nil {
					results <- result{err: err}
					continue
				}
				results <- result{songs: album.Songs}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, a := range albums {
			select {
			case jobs <- a.ID:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var songs []Song
	var firstErr error
	failed := 0
	for r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		songs = append(songs, r.songs...)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(songs) == 0 && firstErr != nil {
		return nil, fmt.Errorf("failed to fetch albums: %w", firstErr)
	}
	if failed > 0 {
		l.client.logDebugf("subsonic: %d of %d album fetches failed, continuing with partial catalog", failed, len(albums))
	}
	return songs, nil
}
