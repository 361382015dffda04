// Package postgres persists wallet profiles and periodic ranking
// snapshots. The leaderboard itself is always derived from the chain scan;
// this store only supplies display enrichment and history.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS wallet_profiles (
			wallet VARCHAR(64) PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			avatar_url TEXT,
			streak INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ranking_snapshots (
			id BIGSERIAL PRIMARY KEY,
			taken_at TIMESTAMP NOT NULL,
			entry_count INT NOT NULL,
			truncated BOOLEAN NOT NULL DEFAULT FALSE,
			entries JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ranking_snapshots_taken_at ON ranking_snapshots(taken_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ProfilesFor returns the profiles known for the given wallets, keyed by
// wallet. Missing wallets are simply absent from the map. Profile rows are
// written by the platform's account system; this service only reads them.
func (r *Repository) ProfilesFor(ctx context.Context, wallets []string) (map[string]domain.Profile, error) {
	if len(wallets) == 0 {
		return map[string]domain.Profile{}, nil
	}

	query := `
		SELECT wallet, username, COALESCE(avatar_url, ''), streak, updated_at
		FROM wallet_profiles WHERE wallet = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, wallets)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Profile)
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.Wallet, &p.Username, &p.AvatarURL, &p.Streak, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		result[p.Wallet] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return result, nil
}

// SaveSnapshot records a ranking snapshot for history and recovery.
func (r *Repository) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("encoding snapshot entries: %w", err)
	}

	query := `
		INSERT INTO ranking_snapshots (taken_at, entry_count, truncated, entries)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.pool.Exec(ctx, query, snap.TakenAt, len(snap.Entries), snap.Truncated, entries)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent persisted ranking, or nil when
// none exists yet.
func (r *Repository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT taken_at, truncated, entries
		FROM ranking_snapshots ORDER BY taken_at DESC LIMIT 1
	`
	var snap domain.Snapshot
	var entries []byte
	err := r.pool.QueryRow(ctx, query).Scan(&snap.TakenAt, &snap.Truncated, &entries)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}

	if err := json.Unmarshal(entries, &snap.Entries); err != nil {
		return nil, fmt.Errorf("decoding snapshot entries: %w", err)
	}
	return &snap, nil
}

// PruneSnapshots deletes snapshots older than the retention window.
func (r *Repository) PruneSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM ranking_snapshots WHERE taken_at < $1`
	tag, err := r.pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
