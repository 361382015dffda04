package das

import "encoding/json"

// rpcRequest is the JSON-RPC 2.0 request envelope the indexing service
// expects.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// RPCError is a provider-reported error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// Attribute is one metadata attribute of an asset. Values arrive as either
// strings or numbers depending on how the NFT was minted.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Asset is the shape of one indexed asset, reduced to the fields this
// application reads. Responses are decoded into this type at the boundary;
// anything that does not fit is a decode error, not a silent nil.
type Asset struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	Content   struct {
		JSONURI  string `json:"json_uri"`
		Metadata struct {
			Name       string      `json:"name"`
			Symbol     string      `json:"symbol"`
			Attributes []Attribute `json:"attributes"`
		} `json:"metadata"`
		Links struct {
			Image string `json:"image"`
		} `json:"links"`
	} `json:"content"`
	Ownership struct {
		Owner string `json:"owner"`
	} `json:"ownership"`
}

// AssetPage is one page of getAssetsByOwner results.
type AssetPage struct {
	Total int     `json:"total"`
	Limit int     `json:"limit"`
	Page  int     `json:"page"`
	Items []Asset `json:"items"`
}

// TokenAccount is one indexed token account of the XP mint.
type TokenAccount struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

// TokenAccountPage is one page of getTokenAccounts results. Cursor is
// non-empty when more pages exist.
type TokenAccountPage struct {
	Total         int            `json:"total"`
	Limit         int            `json:"limit"`
	Cursor        string         `json:"cursor"`
	TokenAccounts []TokenAccount `json:"token_accounts"`
}
