package lastfm

import (
	"time"
)

// Track represents a music track for scrobbling.
type Track struct {
	Artist    string // Required: Artist name
	Track     string // Required: Track name
	Album     string // Optional: Album name
	MBTrackID string // Optional: MusicBrainz track ID
}

// Scrobble represents a single scrobble with timestamp.
type Scrobble struct {
	Track     Track     // The track being scrobbled
	Timestamp time.Time // When the track was played
}

// Token represents an authentication token from auth.getToken.
type Token struct {
	Token string // The authentication token
}

// Session represents an authenticated session from auth.getSession.
type Session struct {
	Key        string // Session key for authenticated requests
	Username   string // Last.fm username
	Subscriber bool   // Whether user is a subscriber
}

// TrackInfo represents the response from track.getInfo, including the
// configured user's playcount for the track.
type TrackInfo struct {
	Artist        string
	Name          string
	UserPlaycount int
}

// SearchResult represents one ranked candidate from track.search.
type SearchResult struct {
	Artist    string
	Name      string
	Listeners int
}

// ScrobbleResponse represents the response from track.scrobble.
type ScrobbleResponse struct {
	Accepted int // Number of scrobbles accepted
	Ignored  int // Number of scrobbles ignored

	// IgnoredMessage carries the reason when the scrobble was ignored.
	IgnoredMessage struct {
		Code int
		Text string
	}
}
