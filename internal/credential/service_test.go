package credential

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

	"github.com/xpboard/internal/cache"
	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/das"
	"github.com/xpboard/internal/domain"
)

type rpcCall struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// fakeDAS serves canned getAssetsByOwner/getAsset responses and counts
// transport calls.
type fakeDAS struct {
	server *httptest.Server
	calls  atomic.Int64
	assets map[string]map[string]any // mint -> asset payload
	owners map[string][]string       // wallet -> mints
}

func newFakeDAS(t *testing.T) *fakeDAS {
	f := &fakeDAS{
		assets: make(map[string]map[string]any),
		owners: make(map[string][]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)

		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		switch call.Method {
		case "getAssetsByOwner":
			wallet, _ := call.Params["ownerAddress"].(string)
			items := make([]map[string]any, 0)
			for _, mint := range f.owners[wallet] {
				items = append(items, f.assets[mint])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": "xpboard",
				"result": map[string]any{"total": len(items), "limit": 1000, "page": 1, "items": items},
			})

		case "getAsset":
			id, _ := call.Params["id"].(string)
			asset, ok := f.assets[id]
			if !ok {
				json.NewEncoder(w).Encode(map[string]any{
					"jsonrpc": "2.0", "id": "xpboard",
					"error": map[string]any{"code": -32000, "message": "Asset Not Found"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": "xpboard", "result": asset,
			})

		default:
			t.Errorf("unexpected method %q", call.Method)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDAS) addAsset(mint, owner, iface, name, track string, lvl int, attrs ...map[string]any) {
	attributes := []map[string]any{
		{"trait_type": "track", "value": track},
		{"trait_type": "level", "value": lvl},
	}
	attributes = append(attributes, attrs...)

	f.assets[mint] = map[string]any{
		"id":        mint,
		"interface": iface,
		"content": map[string]any{
			"json_uri": "https://meta.example/" + mint + ".json",
			"metadata": map[string]any{"name": name, "attributes": attributes},
			"links":    map[string]any{"image": "https://img.example/" + mint + ".png"},
		},
		"ownership": map[string]any{"owner": owner},
	}
	f.owners[owner] = append(f.owners[owner], mint)
}

func newTestService(f *fakeDAS, apiKey string) *Service {
	dasCfg := &config.DASConfig{
		BaseURL: f.server.URL,
		APIKey:  apiKey,
		Network: "mainnet",
		Timeout: 2 * time.Second,
	}
	chainCfg := &config.ChainConfig{ExplorerURL: "https://explorer.solana.com"}
	cacheCfg := &config.CacheConfig{CredentialTTL: 45 * time.Second}

	return NewService(
		das.NewClient(dasCfg, slog.Default()),
		dasCfg,
		chainCfg,
		cache.NewMemoryStore(),
		cacheCfg,
		slog.Default(),
	)
}

func TestByWallet_Unconfigured_NoNetworkCall(t *testing.T) {
	f := newFakeDAS(t)
	svc := newTestService(f, "")

	_, err := svc.ByWallet(context.Background(), "WalletA")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Equal(t, int64(0), f.calls.Load(), "unconfigured lookup must not call the transport")
}

func TestByWallet_FiltersAndFlattens(t *testing.T) {
	f := newFakeDAS(t)
	f.addAsset("M1", "WalletA", "V1_NFT", "DeFi Track", "DeFi", 3,
		map[string]any{"trait_type": "xp", "value": 1500},
		map[string]any{"trait_type": "coursesCompleted", "value": "7"},
	)
	f.addAsset("M2", "WalletA", "FungibleToken", "Not a credential", "", 0)
	f.addAsset("M3", "WalletA", "ProgrammableNFT", "NFT Track", "NFTs", 1)

	svc := newTestService(f, "key")
	creds, err := svc.ByWallet(context.Background(), "WalletA")
	require.NoError(t, err)
	require.Len(t, creds, 2, "fungible asset must be filtered out")

	byMint := map[string]domain.Credential{}
	for _, c := range creds {
		byMint[c.Mint] = c
	}

	m1 := byMint["M1"]
	assert.Equal(t, "WalletA", m1.Owner)
	assert.Equal(t, "DeFi Track", m1.Name)
	assert.Equal(t, "DeFi", m1.Track)
	require.NotNil(t, m1.Level)
	assert.Equal(t, 3, *m1.Level)
	require.NotNil(t, m1.XP)
	assert.Equal(t, int64(1500), *m1.XP)
	require.NotNil(t, m1.CoursesCompleted)
	assert.Equal(t, 7, *m1.CoursesCompleted, "numeric string attributes parse too")
}

func TestByWallet_AbsentAttributesStayNil(t *testing.T) {
	f := newFakeDAS(t)
	f.assets["M1"] = map[string]any{
		"id":        "M1",
		"interface": "V2_NFT",
		"content": map[string]any{
			"json_uri": "https://meta.example/M1.json",
			"metadata": map[string]any{
				"name": "Bare Credential",
				"attributes": []map[string]any{
					{"trait_type": "level", "value": "not-a-number"},
				},
			},
			"links": map[string]any{},
		},
		"ownership": map[string]any{"owner": "WalletB"},
	}
	f.owners["WalletB"] = []string{"M1"}

	svc := newTestService(f, "key")
	creds, err := svc.ByWallet(context.Background(), "WalletB")
	require.NoError(t, err)
	require.Len(t, creds, 1)

	assert.Nil(t, creds[0].Level, "unparseable level stays nil, not zero")
	assert.Nil(t, creds[0].XP)
	assert.Nil(t, creds[0].CoursesCompleted)
	assert.Empty(t, creds[0].Track)
}

func TestByWallet_CacheWithinTTL(t *testing.T) {
	f := newFakeDAS(t)
	f.addAsset("M1", "WalletA", "V1_NFT", "DeFi Track", "DeFi", 3)
	svc := newTestService(f, "key")

	first, err := svc.ByWallet(context.Background(), "WalletA")
	require.NoError(t, err)

	second, err := svc.ByWallet(context.Background(), "WalletA")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.calls.Load(), "second lookup within TTL must hit the cache")
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	f := newFakeDAS(t)
	f.addAsset("M1", "WalletA", "V1_NFT", "DeFi Track", "DeFi", 3)
	svc := newTestService(f, "key")
	ctx := context.Background()

	_, err := svc.ByWallet(ctx, "WalletA")
	require.NoError(t, err)

	svc.Invalidate(ctx, "WalletA")

	_, err = svc.ByWallet(ctx, "WalletA")
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestVerify_KnownMint(t *testing.T) {
	f := newFakeDAS(t)
	f.addAsset("M1", "WalletA", "V1_NFT", "DeFi Track", "DeFi", 3)
	svc := newTestService(f, "key")

	result := svc.Verify(context.Background(), "M1")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Error)
	assert.Equal(t, "WalletA", result.Owner)
	assert.Equal(t, "DeFi Track", result.Name)
	assert.Equal(t, "DeFi", result.Track)
	require.NotNil(t, result.Level)
	assert.Equal(t, 3, *result.Level)
	assert.Equal(t, "https://meta.example/M1.json", result.MetadataURI)
	assert.Equal(t, "https://explorer.solana.com/address/M1", result.ExplorerURL)
}

func TestVerify_UnknownMint(t *testing.T) {
	f := newFakeDAS(t)
	svc := newTestService(f, "key")

	result := svc.Verify(context.Background(), "nope")
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.ExplorerURL)
}

func TestVerify_Unconfigured(t *testing.T) {
	f := newFakeDAS(t)
	svc := newTestService(f, "")

	result := svc.Verify(context.Background(), "M1")
	assert.False(t, result.Valid)
	assert.Equal(t, "DAS not configured", result.Error)
	assert.Equal(t, int64(0), f.calls.Load())
}

func TestVerify_DevnetExplorerURL(t *testing.T) {
	f := newFakeDAS(t)
	dasCfg := &config.DASConfig{
		BaseURL: f.server.URL,
		APIKey:  "",
		Network: "devnet",
	}
	svc := NewService(
		das.NewClient(dasCfg, slog.Default()),
		dasCfg,
		&config.ChainConfig{ExplorerURL: "https://explorer.solana.com"},
		cache.NewMemoryStore(),
		&config.CacheConfig{CredentialTTL: 45 * time.Second},
		slog.Default(),
	)

	result := svc.Verify(context.Background(), "M1")
	assert.Equal(t, "https://explorer.solana.com/address/M1?cluster=devnet", result.ExplorerURL)
}
