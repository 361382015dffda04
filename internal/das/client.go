// Package das is the typed client for the DAS-style indexing API the
// application reads NFT ownership and token-account state from. Responses
// are parsed into concrete types at this boundary; a shape mismatch is
// surfaced as domain.ErrBadResponse rather than propagated as zero values.
package das

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/domain"
)

// NFT interface tags counted as credentials. Anything else an address
// owns (fungible positions, inscriptions) is ignored.
var credentialInterfaces = map[string]bool{
	"V1_NFT":          true,
	"V2_NFT":          true,
	"ProgrammableNFT": true,
	"LEGACY_NFT":      true,
}

// IsCredentialInterface reports whether an asset interface tag is one of
// the NFT kinds treated as credentials.
func IsCredentialInterface(iface string) bool {
	return credentialInterfaces[iface]
}

// Client calls the indexing service over JSON-RPC.
type Client struct {
	cfg        *config.DASConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new indexing-service client.
func NewClient(cfg *config.DASConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// url returns the endpoint with the API key appended as a query parameter,
// the authentication scheme the provider uses.
func (c *Client) url() string {
	endpoint := c.cfg.Endpoint()
	sep := "/?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	} else if strings.HasSuffix(endpoint, "/") {
		sep = "?"
	}
	return fmt.Sprintf("%s%sapi-key=%s", endpoint, sep, c.cfg.APIKey)
}

// call issues one JSON-RPC POST and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if !c.cfg.Configured() {
		return domain.ErrNotConfigured
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "xpboard",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: http status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", domain.ErrBadResponse, method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return domain.ErrAssetNotFound
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: decoding %s result: %v", domain.ErrBadResponse, method, err)
	}
	return nil
}

// GetAssetsByOwner fetches one page of assets owned by an address.
func (c *Client) GetAssetsByOwner(ctx context.Context, owner string, page, limit int) (*AssetPage, error) {
	params := map[string]any{
		"ownerAddress": owner,
		"page":         page,
		"limit":        limit,
	}

	var result AssetPage
	if err := c.call(ctx, "getAssetsByOwner", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAsset fetches a single asset by id. A provider-reported error or an
// empty result maps to domain.ErrAssetNotFound.
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	params := map[string]any{"id": id}

	var result Asset
	if err := c.call(ctx, "getAsset", params, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, domain.ErrAssetNotFound
	}
	return &result, nil
}

// GetTokenAccounts fetches one page of token accounts holding mint. Pass
// an empty cursor for the first page.
func (c *Client) GetTokenAccounts(ctx context.Context, mint string, limit int, cursor string) (*TokenAccountPage, error) {
	params := map[string]any{
		"mint":  mint,
		"limit": limit,
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	var result TokenAccountPage
	if err := c.call(ctx, "getTokenAccounts", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
