package domain

import "time"

// Timeframe selects how much of the all-time ranking is returned. It is a
// slice width, not a time filter: the underlying ranking is always the
// full all-time scan (a deliberate, documented simplification).
type Timeframe string

const (
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAll     Timeframe = "all"
)

// Limit returns the number of entries the timeframe exposes, 0 meaning
// unbounded.
func (t Timeframe) Limit() int {
	switch t {
	case TimeframeWeekly:
		return 20
	case TimeframeMonthly:
		return 50
	default:
		return 0
	}
}

// Valid reports whether t is one of the known timeframes.
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeWeekly, TimeframeMonthly, TimeframeAll:
		return true
	}
	return false
}

// Entry is a single ranked wallet in the XP leaderboard.
type Entry struct {
	Rank      int64  `json:"rank"`
	Wallet    string `json:"wallet"`
	XP        int64  `json:"xp"`
	Level     int    `json:"level"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Streak    int    `json:"streak,omitempty"`
}

// Snapshot is a full, all-time ranking produced by one scan of the XP
// token's holder set.
type Snapshot struct {
	Entries   []Entry   `json:"entries"`
	Truncated bool      `json:"truncated"`
	TakenAt   time.Time `json:"taken_at"`
}

// Profile is the off-chain display data kept for a wallet.
type Profile struct {
	Wallet    string    `json:"wallet"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Streak    int       `json:"streak"`
	UpdatedAt time.Time `json:"updated_at"`
}

// XPBalance is the live XP read for a wallet. Configured lets callers tell
// "mint not configured" apart from "configured but zero".
type XPBalance struct {
	Wallet     string `json:"wallet"`
	XP         int64  `json:"xp"`
	Configured bool   `json:"configured"`
}

// InvalidationEvent is an indexer-side change notification consumed from
// Kafka to drop stale cache entries early.
type InvalidationEvent struct {
	Type      string    `json:"type"`
	Wallet    string    `json:"wallet,omitempty"`
	Mint      string    `json:"mint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventTypeXPTransfer     = "xp_transfer"
	EventTypeCredentialMint = "credential_mint"
)
