package subsonic

import "fmt"

// apiResponse is the decoded subsonic-response envelope.
type apiResponse struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	Error      *Error      `json:"error,omitempty"`
	AlbumList2 *AlbumList2 `json:"albumList2,omitempty"`
	Album      *Album      `json:"album,omitempty"`
}

// Error represents a Subsonic API error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("subsonic: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Subsonic error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common Subsonic error codes.
const (
	ErrCodeGeneric          = 0
	ErrCodeMissingParameter = 10
	ErrCodeClientTooOld     = 20
	ErrCodeServerTooOld     = 30
	ErrCodeWrongCredentials = 40
	ErrCodeNotAuthorized    = 50
	ErrCodeNotFound         = 70
)

// HTTPError represents a non-200 HTTP response from the Subsonic endpoint.
type HTTPError struct {
	StatusCode int
	Status     string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("subsonic: unexpected status: %s", e.Status)
}

// AlbumList2 is the payload of getAlbumList2.view.
type AlbumList2 struct {
	Albums []Album `json:"album"`
}

// Album represents an album, with its songs when fetched via getAlbum.view.
type Album struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	SongCount int    `json:"songCount"`
	Songs     []Song `json:"song,omitempty"`
}

// Song represents a single catalog track.
type Song struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	PlayCount int    `json:"playCount"`
}

// PlayedTrack is one library track with a local playcount greater than zero.
type PlayedTrack struct {
	Artist    string
	Title     string
	PlayCount int
}
