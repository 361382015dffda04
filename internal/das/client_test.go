package das

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(&config.DASConfig{
		BaseURL: url,
		APIKey:  "test-key",
		Network: "mainnet",
		Timeout: 2 * time.Second,
	}, slog.Default())
}

func TestGetAsset_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAsset", req.Method)

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      "xpboard",
			"result": map[string]any{
				"id":        "M1",
				"interface": "V1_NFT",
				"content": map[string]any{
					"json_uri": "https://meta.example/m1.json",
					"metadata": map[string]any{
						"name": "DeFi Track Completion",
						"attributes": []map[string]any{
							{"trait_type": "track", "value": "DeFi"},
							{"trait_type": "level", "value": 3},
						},
					},
					"links": map[string]any{"image": "https://img.example/m1.png"},
				},
				"ownership": map[string]any{"owner": "WalletA"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	asset, err := client.GetAsset(context.Background(), "M1")
	require.NoError(t, err)

	assert.Equal(t, "M1", asset.ID)
	assert.Equal(t, "V1_NFT", asset.Interface)
	assert.Equal(t, "DeFi Track Completion", asset.Content.Metadata.Name)
	assert.Equal(t, "WalletA", asset.Ownership.Owner)
	assert.Len(t, asset.Content.Metadata.Attributes, 2)
}

func TestGetAsset_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      "xpboard",
			"error":   map[string]any{"code": -32000, "message": "Asset Not Found"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetAsset(context.Background(), "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Asset Not Found")
}

func TestGetAsset_NullResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      "xpboard",
			"result":  nil,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetAsset(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetAsset(context.Background(), "M1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCall_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetAsset(context.Background(), "M1")
	assert.ErrorIs(t, err, domain.ErrBadResponse)
}

func TestCall_Unconfigured_NoNetworkCall(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(&config.DASConfig{
		BaseURL: server.URL,
		APIKey:  "", // unconfigured
		Timeout: time.Second,
	}, slog.Default())

	_, err := client.GetAssetsByOwner(context.Background(), "WalletA", 1, 1000)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Equal(t, int64(0), calls.Load(), "unconfigured client must not touch the network")
}

func TestGetTokenAccounts_CursorParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		params, ok := req.Params.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "XPMINT", params["mint"])
		assert.Equal(t, "page2", params["cursor"])

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      "xpboard",
			"result": map[string]any{
				"total":          1,
				"limit":          1000,
				"cursor":         "",
				"token_accounts": []map[string]any{{"address": "a1", "mint": "XPMINT", "owner": "W1", "amount": 500}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	page, err := client.GetTokenAccounts(context.Background(), "XPMINT", 1000, "page2")
	require.NoError(t, err)
	require.Len(t, page.TokenAccounts, 1)
	assert.Equal(t, uint64(500), page.TokenAccounts[0].Amount)
}

func TestIsCredentialInterface(t *testing.T) {
	assert.True(t, IsCredentialInterface("V1_NFT"))
	assert.True(t, IsCredentialInterface("V2_NFT"))
	assert.True(t, IsCredentialInterface("ProgrammableNFT"))
	assert.True(t, IsCredentialInterface("LEGACY_NFT"))
	assert.False(t, IsCredentialInterface("FungibleToken"))
	assert.False(t, IsCredentialInterface(""))
}
