package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeetURL(t *testing.T) {
	instance, slug, err := parseMeetURL("https://meet.example.org/abc-defg-hij/")
	require.NoError(t, err)
	assert.Equal(t, "meet.example.org", instance)
	assert.Equal(t, "abc-defg-hij", slug)

	instance, slug, err = parseMeetURL("meet.example.org/abc-defg-hij")
	require.NoError(t, err)
	assert.Equal(t, "meet.example.org", instance)
	assert.Equal(t, "abc-defg-hij", slug)

	_, _, err = parseMeetURL("https://meet.example.org/")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, _, err = parseMeetURL("just-a-host")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestExtractSlug(t *testing.T) {
	slug, err := ExtractSlug("abc-defg-hij")
	require.NoError(t, err)
	assert.Equal(t, "abc-defg-hij", slug)

	slug, err = ExtractSlug("https://meet.example.org/abc-defg-hij/")
	require.NoError(t, err)
	assert.Equal(t, "abc-defg-hij", slug)

	_, err = ExtractSlug("ABC-DEFG-HIJ")
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, err = ExtractSlug("abcd-efg-hij")
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, err = ExtractSlug("")
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

// withTestServer points RequestToken at an httptest handler.
func withTestServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prev := apiScheme
	apiScheme = "http"
	t.Cleanup(func() { apiScheme = prev })

	return strings.TrimPrefix(srv.URL, "http://")
}

func TestRequestToken(t *testing.T) {
	var gotPath, gotQuery string
	host := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"livekit":{"url":"https://sfu.example.org","token":"jwt-token"}}`))
	})

	info, err := RequestToken(context.Background(), host+"/abc-defg-hij", "alice smith")
	require.NoError(t, err)
	assert.Equal(t, "wss://sfu.example.org", info.URL)
	assert.Equal(t, "jwt-token", info.Token)
	assert.Equal(t, "/api/v1.0/rooms/abc-defg-hij/", gotPath)
	assert.Equal(t, "username=alice+smith", gotQuery)
}

func TestRequestTokenAnonymous(t *testing.T) {
	var gotQuery string
	host := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"livekit":{"url":"ws://sfu.example.org","token":"jwt"}}`))
	})

	info, err := RequestToken(context.Background(), host+"/abc-defg-hij", "")
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
	assert.Equal(t, "ws://sfu.example.org", info.URL)
}

func TestRequestTokenRejected(t *testing.T) {
	host := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := RequestToken(context.Background(), host+"/abc-defg-hij", "alice")
	assert.ErrorIs(t, err, ErrTokenRequest)
}

func TestRequestTokenBadResponse(t *testing.T) {
	host := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := RequestToken(context.Background(), host+"/abc-defg-hij", "alice")
	assert.ErrorIs(t, err, ErrTokenRequest)
}

func TestRequestTokenInvalidURL(t *testing.T) {
	_, err := RequestToken(context.Background(), "nonsense", "alice")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
