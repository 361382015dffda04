// Package chain reads live token balances straight from a node RPC
// endpoint, bypassing the indexing service. It is used only for the
// real-time XP display read.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/domain"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// tokenAmount mirrors the jsonParsed token amount shape. UIAmount is a
// pointer: the node omits it for amounts that overflow a float.
type tokenAmount struct {
	Amount   string   `json:"amount"`
	Decimals int      `json:"decimals"`
	UIAmount *float64 `json:"uiAmount"`
}

type parsedAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount tokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// Client is a minimal JSON-RPC client for the node endpoint.
type Client struct {
	cfg        *config.ChainConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new node RPC client.
func NewClient(cfg *config.ChainConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Configured reports whether the XP mint is set. Without it the balance
// read degrades to zero rather than failing.
func (c *Client) Configured() bool {
	return c.cfg.XPMint != ""
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
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

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: decoding %s result: %v", domain.ErrBadResponse, method, err)
	}
	return nil
}

// XPBalance reads the owner's balance of the configured XP mint. Zero
// matching accounts means zero XP. When a wallet splits its balance across
// several token accounts only the first is read, the legacy behavior this
// endpoint commits to; the leaderboard path sums across accounts.
func (c *Client) XPBalance(ctx context.Context, owner string) (domain.XPBalance, error) {
	if !c.Configured() {
		return domain.XPBalance{Wallet: owner, Configured: false}, nil
	}

	params := []any{
		owner,
		map[string]string{"mint": c.cfg.XPMint},
		map[string]string{"encoding": "jsonParsed"},
	}

	var result parsedAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return domain.XPBalance{Wallet: owner, Configured: true}, err
	}

	if len(result.Value) == 0 {
		return domain.XPBalance{Wallet: owner, Configured: true}, nil
	}

	amount := result.Value[0].Account.Data.Parsed.Info.TokenAmount
	xp := amountToXP(amount)

	return domain.XPBalance{Wallet: owner, XP: xp, Configured: true}, nil
}

// amountToXP floors the UI amount when the node supplies it, otherwise
// derives it from the raw integer amount and decimal count.
func amountToXP(amount tokenAmount) int64 {
	if amount.UIAmount != nil {
		return int64(math.Floor(*amount.UIAmount))
	}

	raw, err := strconv.ParseUint(amount.Amount, 10, 64)
	if err != nil {
		return 0
	}

	divisor := uint64(1)
	for i := 0; i < amount.Decimals; i++ {
		divisor *= 10
	}
	return int64(raw / divisor)
}
