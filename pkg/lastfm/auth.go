package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
)

// AuthService provides authentication operations for the Last.fm API.
type AuthService struct {
	client *Client
}

// GetToken requests an authentication token from Last.fm.
//
// This is the first step in the authentication flow. After obtaining a token,
// the user must authorize it by visiting the URL returned by GetAuthURL.
//
// Example:
//
//	token, err := client.Auth().GetToken(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Visit:", client.Auth().GetAuthURL(token.Token))
func (a *AuthService) GetToken(ctx context.Context) (*Token, error) {
	resp, err := a.client.call(ctx, "auth.getToken", nil, false)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Token string `xml:"token"`
	}
	wrapped := []byte("<root>" + string(resp) + "</root>")
	if err := xml.Unmarshal(wrapped, &parsed); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse token response: %w", err)
	}
	if parsed.Token == "" {
		return nil, fmt.Errorf("lastfm: empty token in response")
	}

	return &Token{Token: parsed.Token}, nil
}

// GetAuthURL returns the URL where users authorize the token.
//
// After calling GetToken, direct the user to this URL to authorize
// the application. Once authorized, call GetSession to exchange the
// token for a session key.
//
// Example:
//
//	authURL := client.Auth().GetAuthURL(token.Token)
//	fmt.Println("Please visit:", authURL)
func (a *AuthService) GetAuthURL(token string) string {
	return "https://www.last.fm/api/auth/?api_key=" + a.client.apiKey + "&token=" + token
}

// GetSession exchanges an authorized token for a session key.
//
// After the user has authorized the token at the URL from GetAuthURL,
// call this method to exchange the token for a permanent session key.
// The session key should be stored and used for all future authenticated
// requests.
//
// Example:
//
//	session, err := client.Auth().GetSession(ctx, token.Token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetSessionKey(session.Key)
//	// Store session.Key for future use
func (a *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	params := map[string]string{
		"token": token,
	}

	resp, err := a.client.call(ctx, "auth.getSession", params, false)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Name       string `xml:"session>name"`
		Key        string `xml:"session>key"`
		Subscriber int    `xml:"session>subscriber"`
	}
	wrapped := []byte("<root>" + string(resp) + "</root>")
	if err := xml.Unmarshal(wrapped, &parsed); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}
	if parsed.Key == "" {
		return nil, fmt.Errorf("lastfm: empty session key in response")
	}

	return &Session{
		Key:        parsed.Key,
		Username:   parsed.Name,
		Subscriber: parsed.Subscriber == 1,
	}, nil
}
