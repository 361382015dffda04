package leaderboard

import (
	"context"
	"time"

	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/level"
)

// FixtureProvider serves a deterministic in-memory ranking for development
// and UI work when the indexing service is unconfigured. An unranked
// wallet gets rank 0, the same contract as the live provider.
type FixtureProvider struct {
	entries []domain.Entry
}

// NewFixtureProvider seeds the provider with a small static ranking.
func NewFixtureProvider() *FixtureProvider {
	seed := []struct {
		wallet   string
		username string
		xp       int64
		streak   int
	}{
		{"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", "sol_scholar", 14400, 12},
		{"4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", "defi_dana", 8100, 5},
		{"7k5rW2rX83mQeD5uYkGkULJYroFctdCe2HpNu5sJgmlw", "night_miner", 4900, 0},
		{"2wmVCSfPxGPjrnMMn7rchp4uaeoTqN39mXFC2zhPdri9", "cred_hunter", 2500, 3},
		{"6VzWGL51jLcTodDGkXVyV3HcdLVPPu2BTCtmz5cpQuRy", "fresh_start", 400, 1},
	}

	entries := make([]domain.Entry, len(seed))
	for i, s := range seed {
		entries[i] = domain.Entry{
			Rank:     int64(i + 1),
			Wallet:   s.wallet,
			XP:       s.xp,
			Level:    level.ForXP(s.xp),
			Username: s.username,
			Streak:   s.streak,
		}
	}
	return &FixtureProvider{entries: entries}
}

// Top implements Provider.
func (p *FixtureProvider) Top(_ context.Context, tf domain.Timeframe) ([]domain.Entry, error) {
	entries := p.entries
	if limit := tf.Limit(); limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rank implements Provider.
func (p *FixtureProvider) Rank(_ context.Context, wallet string) (int64, error) {
	for _, e := range p.entries {
		if e.Wallet == wallet {
			return e.Rank, nil
		}
	}
	return 0, nil
}

// Snapshot implements Provider.
func (p *FixtureProvider) Snapshot(_ context.Context) (domain.Snapshot, error) {
	return domain.Snapshot{Entries: p.entries, TakenAt: time.Now()}, nil
}
