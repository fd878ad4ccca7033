// Package auth turns a meeting URL into transport credentials via the
// Meet API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidURL   = errors.New("invalid meet url")
	ErrInvalidSlug  = errors.New("invalid room slug")
	ErrTokenRequest = errors.New("token request failed")
)

// Room slug format: 3 lowercase + dash + 4 lowercase + dash + 3 lowercase.
var slugPattern = regexp.MustCompile(`^[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

// apiScheme is overridden in tests to reach a plain-http test server.
var apiScheme = "https"

// TokenInfo is the credential pair needed to dial the transport.
type TokenInfo struct {
	// URL is the websocket endpoint (wss://).
	URL   string
	Token string
}

type apiResponse struct {
	LiveKit struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	} `json:"livekit"`
}

// RequestToken calls the Meet API for the room behind meetURL. An empty
// username joins anonymously.
func RequestToken(ctx context.Context, meetURL, username string) (TokenInfo, error) {
	instance, slug, err := parseMeetURL(meetURL)
	if err != nil {
		return TokenInfo{}, err
	}

	apiURL := fmt.Sprintf("%s://%s/api/v1.0/rooms/%s/", apiScheme, instance, slug)
	if username != "" {
		apiURL += "?username=" + url.QueryEscape(username)
	}
	log.Info().Str("module", "auth").Str("url", apiURL).Msg("requesting token from Meet API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenInfo{}, fmt.Errorf("%w: Meet API returned status %d", ErrTokenRequest, resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: invalid Meet API response: %v", ErrTokenRequest, err)
	}

	wsURL := strings.Replace(data.LiveKit.URL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)

	return TokenInfo{URL: wsURL, Token: data.LiveKit.Token}, nil
}

// ExtractSlug validates room input: a full URL or a bare slug.
func ExtractSlug(input string) (string, error) {
	input = strings.TrimSuffix(strings.TrimSpace(input), "/")
	candidate := input
	if i := strings.LastIndex(input, "/"); i >= 0 {
		candidate = input[i+1:]
	}
	if !slugPattern.MatchString(candidate) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, candidate)
	}
	return candidate, nil
}

// parseMeetURL splits user input into (instance, room slug). Accepts
// with or without an http(s) scheme.
func parseMeetURL(raw string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: expected 'instance/room-slug', got %q", ErrInvalidURL, trimmed)
	}
	return parts[0], parts[1], nil
}
