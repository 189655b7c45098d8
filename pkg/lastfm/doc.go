// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements a Go client for the Last.fm API, focusing on
// authentication, track lookup, and scrobbling operations. It provides a
// clean, type-safe API with context support and structured error handling.
//
// # Installation
//
//	go get github.com/jfmyers9/syncfm/pkg/lastfm
//
// # Quick Start
//
// First, create a client with your API credentials:
//
//	import "github.com/jfmyers9/syncfm/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	    Username:  "your-username",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// Last.fm uses a token-based authentication flow:
//
//  1. Get a token from Last.fm
//  2. Direct the user to authorize the token
//  3. Exchange the token for a session key
//  4. Store and reuse the session key
//
// Example:
//
//	// Step 1: Get token
//	token, err := client.Auth().GetToken(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Step 2: User authorizes
//	fmt.Println("Please visit:", client.Auth().GetAuthURL(token.Token))
//	fmt.Print("Press enter after authorizing...")
//	fmt.Scanln()
//
//	// Step 3: Get session
//	session, err := client.Auth().GetSession(ctx, token.Token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Step 4: Save and use session key
//	client.SetSessionKey(session.Key)
//	// Store session.Key for future use
//
// # Track Lookup
//
// Tracks can be looked up exactly or searched fuzzily. GetInfo includes
// the configured user's playcount for the track:
//
//	info, err := client.Track().GetInfo(ctx, "The Beatles", "Yesterday")
//	if err == nil {
//	    fmt.Println("playcount:", info.UserPlaycount)
//	}
//
//	results, err := client.Track().Search(ctx, "The Beatles", "Yesterday", 10)
//
// # Scrobbling
//
// Once authenticated, you can scrobble tracks:
//
//	track := lastfm.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	}
//	resp, err := client.Scrobble().Scrobble(ctx, track, time.Now().Add(-2*time.Minute))
//
// # Error Handling
//
// The package never retries on its own. Instead every failure is
// classified so callers can drive their own retry policy: transient
// conditions (network failures, 5xx responses, temporary API errors)
// and rate limits (HTTP 429, API error 29) are wrapped with the marker
// types from the retry package, while everything else is returned as-is
// and should be treated as permanent.
//
//	resp, err := client.Scrobble().Scrobble(ctx, track, timestamp)
//	if err != nil {
//	    var lastfmErr *lastfm.Error
//	    if errors.As(err, &lastfmErr) {
//	        // Permanent API error, inspect lastfmErr.Code
//	    }
//	}
//
// # Context Support
//
// All API methods accept a context.Context for cancellation and timeouts:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	token, err := client.Auth().GetToken(ctx)
//
// # Configuration
//
// The client can be configured with custom HTTP clients, base URLs (for testing),
// and optional loggers:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:     "your-api-key",
//	    APISecret:  "your-api-secret",
//	    Username:   "your-username",
//	    SessionKey: "saved-session-key",
//	    HTTPClient: &http.Client{Timeout: 30 * time.Second},
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # API Coverage
//
// Currently implemented:
//   - Authentication (auth.getToken, auth.getSession)
//   - Track lookup (track.getInfo, track.search)
//   - Scrobbling (track.scrobble)
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api/scrobbling
package lastfm
