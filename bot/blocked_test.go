package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/setup/config"
)

func TestIgnoredUsersChecker(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ignored_users":{"@spam:test":{}}}`))
	}))
	defer srv.Close()

	client, err := NewClient(&config.Global{
		HomeserverURL: srv.URL,
		UserID:        "@warden:test",
		AccessToken:   "token",
	})
	require.NoError(t, err)
	checker := NewIgnoredUsersChecker(client)

	blocked, err := checker.IsBlocked(context.Background(), "@spam:test")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = checker.IsBlocked(context.Background(), "@fine:test")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Equal(t, 1, requests, "second lookup should be served from the cache")
}
