package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"
)

// ScrobbleService provides scrobbling operations for the Last.fm API.
type ScrobbleService struct {
	client *Client
}

// Scrobble submits a single scrobble to Last.fm.
//
// Requires authentication (session key must be set via SetSessionKey).
//
// Example:
//
//	track := lastfm.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	}
//	timestamp := time.Now().Add(-2 * time.Minute)
//	resp, err := client.Scrobble().Scrobble(ctx, track, timestamp)
//	if err != nil {
//	    log.Printf("Failed to scrobble: %v", err)
//	}
func (s *ScrobbleService) Scrobble(ctx context.Context, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	if s.client.sessionKey == "" {
		return nil, ErrNoSessionKey
	}

	params := map[string]string{
		"artist[0]":    track.Artist,
		"track[0]":     track.Track,
		"timestamp[0]": fmt.Sprintf("%d", timestamp.Unix()),
	}
	if track.Album != "" {
		params["album[0]"] = track.Album
	}
	if track.MBTrackID != "" {
		params["mbid[0]"] = track.MBTrackID
	}

	resp, err := s.client.call(ctx, "track.scrobble", params, true)
	if err != nil {
		return nil, err
	}

	scrobbleResp, err := unmarshalScrobbles(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	return scrobbleResp, nil
}

// scrobbleResponse represents the XML response from track.scrobble.
type scrobbleResponse struct {
	Scrobbles struct {
		Accepted  string `xml:"accepted,attr"`
		Ignored   string `xml:"ignored,attr"`
		Scrobbles []struct {
			Artist         string `xml:"artist"`
			Track          string `xml:"track"`
			IgnoredMessage struct {
				Code int    `xml:"code,attr"`
				Text string `xml:",chardata"`
			} `xml:"ignoredMessage"`
		} `xml:"scrobble"`
	} `xml:"scrobbles"`
}

// unmarshalScrobbles parses the XML response from track.scrobble.
func unmarshalScrobbles(data []byte) (*ScrobbleResponse, error) {
	// Wrap inner XML in root element for proper unmarshaling
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp scrobbleResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scrobble response: %w", err)
	}

	// Parse accepted and ignored counts
	accepted := 0
	ignored := 0
	if resp.Scrobbles.Accepted != "" {
		fmt.Sscanf(resp.Scrobbles.Accepted, "%d", &accepted)
	}
	if resp.Scrobbles.Ignored != "" {
		fmt.Sscanf(resp.Scrobbles.Ignored, "%d", &ignored)
	}

	result := &ScrobbleResponse{
		Accepted: accepted,
		Ignored:  ignored,
	}
	if len(resp.Scrobbles.Scrobbles) > 0 {
		result.IgnoredMessage.Code = resp.Scrobbles.Scrobbles[0].IgnoredMessage.Code
		result.IgnoredMessage.Text = resp.Scrobbles.Scrobbles[0].IgnoredMessage.Text
	}

	return result, nil
}
