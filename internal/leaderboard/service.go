// Package leaderboard builds the ranked view of XP token holders from the
// indexing service's token-account scan.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xpboard/internal/cache"
	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/das"
	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/level"
)

// Cache keys for the full ranking and the per-timeframe slices.
const (
	SnapshotCacheKey     = "leaderboard:snapshot"
	timeframeCachePrefix = "leaderboard:timeframe:"
)

// Provider is the read surface the HTTP layer and the refresh worker use.
// The DAS-backed Service implements it, as does the fixture provider used
// when the indexing service is unconfigured in development.
type Provider interface {
	Top(ctx context.Context, tf domain.Timeframe) ([]domain.Entry, error)
	Rank(ctx context.Context, wallet string) (int64, error)
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// ProfileSource enriches ranked wallets with display names, avatars and
// streaks. May be nil when no profile store is wired.
type ProfileSource interface {
	ProfilesFor(ctx context.Context, wallets []string) (map[string]domain.Profile, error)
}

// Service aggregates token-account balances into a ranked leaderboard.
type Service struct {
	das      *das.Client
	dasCfg   *config.DASConfig
	chainCfg *config.ChainConfig
	lbCfg    *config.LeaderboardConfig
	cache    cache.Store
	cacheCfg *config.CacheConfig
	profiles ProfileSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new leaderboard service. profiles may be nil.
func NewService(
	dasClient *das.Client,
	dasCfg *config.DASConfig,
	chainCfg *config.ChainConfig,
	lbCfg *config.LeaderboardConfig,
	store cache.Store,
	cacheCfg *config.CacheConfig,
	profiles ProfileSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		das:      dasClient,
		dasCfg:   dasCfg,
		chainCfg: chainCfg,
		lbCfg:    lbCfg,
		cache:    store,
		cacheCfg: cacheCfg,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether the scan can run at all: it needs both the
// indexing API key and the XP mint address.
func (s *Service) Configured() bool {
	return s.dasCfg.Configured() && s.chainCfg.XPMint != ""
}

// Snapshot returns the full all-time ranking, cached for the snapshot TTL.
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if !s.Configured() {
		return domain.Snapshot{}, domain.ErrNotConfigured
	}

	return cache.GetOrCompute(ctx, s.cache, SnapshotCacheKey, s.cacheCfg.SnapshotTTL, s.build)
}

// Top returns the timeframe's slice of the all-time ranking. The slice is
// cached separately with a timeframe-dependent TTL; weekly and monthly are
// prefixes of the same snapshot, never time-filtered sets.
func (s *Service) Top(ctx context.Context, tf domain.Timeframe) ([]domain.Entry, error) {
	if !tf.Valid() {
		tf = domain.TimeframeAll
	}

	return cache.GetOrCompute(ctx, s.cache, timeframeCachePrefix+string(tf), s.ttlFor(tf),
		func(ctx context.Context) ([]domain.Entry, error) {
			snap, err := s.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			entries := snap.Entries
			if limit := tf.Limit(); limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			return entries, nil
		})
}

// Rank returns a wallet's 1-based position in the all-time ranking, 0 when
// the wallet holds no XP (unranked).
func (s *Service) Rank(ctx context.Context, wallet string) (int64, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	for _, entry := range snap.Entries {
		if entry.Wallet == wallet {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// Invalidate drops the cached ranking so the next read rebuilds it.
func (s *Service) Invalidate(ctx context.Context) {
	keys := []string{
		SnapshotCacheKey,
		timeframeCachePrefix + string(domain.TimeframeWeekly),
		timeframeCachePrefix + string(domain.TimeframeMonthly),
		timeframeCachePrefix + string(domain.TimeframeAll),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to invalidate leaderboard cache", "key", key, "error", err)
		}
	}
}

func (s *Service) ttlFor(tf domain.Timeframe) time.Duration {
	switch tf {
	case domain.TimeframeWeekly:
		return s.cacheCfg.WeeklyTTL
	case domain.TimeframeMonthly:
		return s.cacheCfg.MonthlyTTL
	default:
		return s.cacheCfg.AllTimeTTL
	}
}

// build runs the holder scan and produces the ranked snapshot.
func (s *Service) build(ctx context.Context) (domain.Snapshot, error) {
	accounts, truncated, err := s.scan(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	// A wallet may hold the XP token across several accounts; sum first.
	totals := make(map[string]uint64)
	for _, acct := range accounts {
		totals[acct.Owner] += acct.Amount
	}

	divisor := uint64(1)
	for i := 0; i < s.chainCfg.Decimals; i++ {
		divisor *= 10
	}

	entries := make([]domain.Entry, 0, len(totals))
	for wallet, raw := range totals {
		entries = append(entries, domain.Entry{
			Wallet: wallet,
			XP:     int64(raw / divisor),
		})
	}

	// Descending by XP; equal balances order by wallet so reruns over the
	// same data produce the same ranking.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].Wallet < entries[j].Wallet
	})

	for i := range entries {
		entries[i].Rank = int64(i + 1)
		entries[i].Level = level.ForXP(entries[i].XP)
	}

	s.enrich(ctx, entries)

	return domain.Snapshot{
		Entries:   entries,
		Truncated: truncated,
		TakenAt:   s.now(),
	}, nil
}

// scan pages through the mint's token accounts. With cursor-following off
// (the default) a single page of up to PageSize accounts is read and a
// larger holder set silently truncates, the legacy behavior kept as the
// default.
func (s *Service) scan(ctx context.Context) ([]das.TokenAccount, bool, error) {
	var accounts []das.TokenAccount
	cursor := ""

	for {
		page, err := s.das.GetTokenAccounts(ctx, s.chainCfg.XPMint, s.lbCfg.PageSize, cursor)
		if err != nil {
			return nil, false, fmt.Errorf("scanning token accounts: %w", err)
		}
		accounts = append(accounts, page.TokenAccounts...)

		if !s.lbCfg.FollowCursor || page.Cursor == "" {
			return accounts, page.Cursor != "", nil
		}
		if len(accounts) >= s.lbCfg.MaxAccounts {
			return accounts, true, nil
		}
		cursor = page.Cursor
	}
}

// enrich fills usernames, avatars and streaks from the profile store.
// Failures only cost display polish, never the ranking itself.
func (s *Service) enrich(ctx context.Context, entries []domain.Entry) {
	if s.profiles == nil || len(entries) == 0 {
		return
	}

	wallets := make([]string, len(entries))
	for i, e := range entries {
		wallets[i] = e.Wallet
	}

	found, err := s.profiles.ProfilesFor(ctx, wallets)
	if err != nil {
		s.logger.Warn("failed to load profiles for leaderboard", "error", err)
		return
	}

	for i := range entries {
		if p, ok := found[entries[i].Wallet]; ok {
			entries[i].Username = p.Username
			entries[i].AvatarURL = p.AvatarURL
			entries[i].Streak = p.Streak
		}
	}
}
