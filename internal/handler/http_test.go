package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpboard/internal/cache"
	"github.com/xpboard/internal/chain"
	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/credential"
	"github.com/xpboard/internal/das"
	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/leaderboard"
	"github.com/xpboard/internal/websocket"
)

// newTestServer wires the router over the fixture leaderboard and
// unconfigured chain/indexing clients, so every lookup exercises the
// degrade-to-empty contract instead of the network.
func newTestServer(t *testing.T) *httptest.Server {
	logger := slog.Default()

	dasCfg := &config.DASConfig{Timeout: time.Second}
	chainCfg := &config.ChainConfig{Timeout: time.Second}
	cacheCfg := &config.CacheConfig{CredentialTTL: 45 * time.Second}

	credentials := credential.NewService(
		das.NewClient(dasCfg, logger), dasCfg, chainCfg,
		cache.NewMemoryStore(), cacheCfg, logger,
	)

	hub := websocket.NewHub(logger)
	go hub.Run()

	h := NewHandler(
		leaderboard.NewFixtureProvider(),
		credentials,
		chain.NewClient(chainCfg, logger),
		hub,
		logger,
	)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, APIResponse) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		status, body := getJSON(t, srv.URL+path)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.Success)
	}
}

func TestGetLeaderboard(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/leaderboard")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	entries, ok := body.Data.([]any)
	require.True(t, ok)
	require.NotEmpty(t, entries)

	first := entries[0].(map[string]any)
	assert.Equal(t, float64(1), first["rank"])
	assert.NotEmpty(t, first["wallet"])
}

func TestGetLeaderboard_InvalidTimeframe(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/leaderboard?timeframe=hourly")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
}

func TestGetLeaderboard_TimeframeAccepted(t *testing.T) {
	srv := newTestServer(t)

	for _, tf := range []domain.Timeframe{domain.TimeframeWeekly, domain.TimeframeMonthly, domain.TimeframeAll} {
		status, body := getJSON(t, srv.URL+"/api/v1/leaderboard?timeframe="+string(tf))
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.Success)
	}
}

func TestGetRank(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/leaderboard/rank/unknown-wallet")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	data := body.Data.(map[string]any)
	assert.Equal(t, "unknown-wallet", data["wallet"])
	assert.Equal(t, float64(0), data["rank"])
}

func TestGetCredentials_UnconfiguredIsEmptyList(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/wallets/somewallet/credentials")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	creds, ok := body.Data.([]any)
	require.True(t, ok, "degraded lookup must still be a JSON array, not null")
	assert.Empty(t, creds)
}

func TestGetXP_UnconfiguredIsZero(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/wallets/somewallet/xp")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	data := body.Data.(map[string]any)
	assert.Equal(t, "somewallet", data["wallet"])
	assert.Equal(t, false, data["configured"])
	assert.Equal(t, float64(0), data["xp"])

	progress := data["progress"].(map[string]any)
	assert.Equal(t, float64(0), progress["level"])
}

func TestVerifyCredential_Unconfigured(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/credentials/somemint/verify")
	require.Equal(t, http.StatusOK, status, "verification always answers 200")
	require.True(t, body.Success)

	data := body.Data.(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "somemint", data["mint"])
	assert.Equal(t, domain.ErrDASNotConfigured, data["error"])
}

func TestWebSocketStats(t *testing.T) {
	srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/api/v1/ws/stats")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	data := body.Data.(map[string]any)
	assert.Equal(t, float64(0), data["total_connections"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/leaderboard", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
