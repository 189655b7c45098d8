package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
)

// TrackService provides track lookup and search operations.
type TrackService struct {
	client *Client
}

// GetInfo looks a track up by exact (artist, name) and returns its metadata
// together with the configured user's playcount.
//
// A username must be configured on the client; the userplaycount element is
// only present in the response when the username parameter is sent.
// A track that Last.fm does not know returns *Error with code 6.
func (s *TrackService) GetInfo(ctx context.Context, artist, track string) (*TrackInfo, error) {
	if s.client.username == "" {
		return nil, ErrNoUsername
	}

	params := map[string]string{
		"artist":   artist,
		"track":    track,
		"username": s.client.username,
	}

	resp, err := s.client.call(ctx, "track.getInfo", params, false)
	if err != nil {
		return nil, err
	}

	info, err := unmarshalTrackInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse track info response: %w", err)
	}

	return info, nil
}

// Search performs a fuzzy track search and returns the ranked candidate
// list, best match first. At most limit results are returned; limit <= 0
// leaves the server default in place.
func (s *TrackService) Search(ctx context.Context, artist, track string, limit int) ([]SearchResult, error) {
	params := map[string]string{
		"artist": artist,
		"track":  track,
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	resp, err := s.client.call(ctx, "track.search", params, false)
	if err != nil {
		return nil, err
	}

	results, err := unmarshalSearchResults(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse search response: %w", err)
	}

	return results, nil
}

// trackInfoResponse represents the XML response from track.getInfo.
type trackInfoResponse struct {
	Name          string `xml:"track>name"`
	ArtistName    string `xml:"track>artist>name"`
	UserPlaycount string `xml:"track>userplaycount"`
}

// unmarshalTrackInfo parses the XML response from track.getInfo.
func unmarshalTrackInfo(data []byte) (*TrackInfo, error) {
	// Wrap inner XML in root element for proper unmarshaling
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp trackInfoResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal track info response: %w", err)
	}

	playcount := 0
	if resp.UserPlaycount != "" {
		fmt.Sscanf(resp.UserPlaycount, "%d", &playcount)
	}

	return &TrackInfo{
		Artist:        resp.ArtistName,
		Name:          resp.Name,
		UserPlaycount: playcount,
	}, nil
}

// searchResponse represents the XML response from track.search.
type searchResponse struct {
	Tracks []struct {
		Name      string `xml:"name"`
		Artist    string `xml:"artist"`
		Listeners string `xml:"listeners"`
	} `xml:"results>trackmatches>track"`
}

// unmarshalSearchResults parses the XML response from track.search.
func unmarshalSearchResults(data []byte) ([]SearchResult, error) {
	// Wrap inner XML in root element for proper unmarshaling
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp searchResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	results := make([]SearchResult, len(resp.Tracks))
	for i, t := range resp.Tracks {
		listeners := 0
		if t.Listeners != "" {
			fmt.Sscanf(t.Listeners, "%d", &listeners)
		}
		results[i] = SearchResult{
			Artist:    t.Artist,
			Name:      t.Name,
			Listeners: listeners,
		}
	}

	return results, nil
}
