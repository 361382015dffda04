// Package credential looks up and verifies course-completion NFTs through
// the indexing service.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xpboard/internal/cache"
	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/das"
	"github.com/xpboard/internal/domain"
)

// Service resolves wallet credentials and verifies single mints. Results
// are cached per wallet; verification is uncached (it is the trust path).
type Service struct {
	das      *das.Client
	dasCfg   *config.DASConfig
	chainCfg *config.ChainConfig
	cache    cache.Store
	cacheCfg *config.CacheConfig
	logger   *slog.Logger
}

// NewService creates a new credential service.
func NewService(
	dasClient *das.Client,
	dasCfg *config.DASConfig,
	chainCfg *config.ChainConfig,
	store cache.Store,
	cacheCfg *config.CacheConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		das:      dasClient,
		dasCfg:   dasCfg,
		chainCfg: chainCfg,
		cache:    store,
		cacheCfg: cacheCfg,
		logger:   logger,
	}
}

// CacheKey returns the cache key for a wallet's credential list.
func CacheKey(wallet string) string {
	return "credentials:" + wallet
}

// ByWallet returns the credentials owned by a wallet. Unconfigured
// indexing returns domain.ErrNotConfigured without touching the network;
// the HTTP layer renders that as an empty list.
func (s *Service) ByWallet(ctx context.Context, wallet string) ([]domain.Credential, error) {
	if !s.dasCfg.Configured() {
		return nil, domain.ErrNotConfigured
	}

	return cache.GetOrCompute(ctx, s.cache, CacheKey(wallet), s.cacheCfg.CredentialTTL,
		func(ctx context.Context) ([]domain.Credential, error) {
			return s.fetchByWallet(ctx, wallet)
		})
}

func (s *Service) fetchByWallet(ctx context.Context, wallet string) ([]domain.Credential, error) {
	page, err := s.das.GetAssetsByOwner(ctx, wallet, 1, 1000)
	if err != nil {
		return nil, fmt.Errorf("fetching assets for %s: %w", wallet, err)
	}

	creds := make([]domain.Credential, 0, len(page.Items))
	for _, asset := range page.Items {
		if !das.IsCredentialInterface(asset.Interface) {
			continue
		}
		creds = append(creds, flatten(asset, wallet))
	}
	return creds, nil
}

// Invalidate drops the cached credential list for a wallet.
func (s *Service) Invalidate(ctx context.Context, wallet string) {
	if err := s.cache.Delete(ctx, CacheKey(wallet)); err != nil {
		s.logger.Warn("failed to invalidate credential cache", "wallet", wallet, "error", err)
	}
}

// Verify looks up a single credential by mint. The result always carries
// an explorer URL; Valid=false carries the reason in Error. This is the
// one path where "not configured" stays distinguishable from "not found".
func (s *Service) Verify(ctx context.Context, mint string) domain.VerificationResult {
	explorerURL := s.explorerURL(mint)

	if !s.dasCfg.Configured() {
		return domain.VerificationResult{
			Mint:        mint,
			ExplorerURL: explorerURL,
			Error:       domain.ErrDASNotConfigured,
		}
	}

	asset, err := s.das.GetAsset(ctx, mint)
	if err != nil {
		msg := "asset not found"
		if !errors.Is(err, domain.ErrAssetNotFound) {
			msg = err.Error()
			s.logger.Warn("credential verification failed", "mint", mint, "error", err)
		}
		return domain.VerificationResult{
			Mint:        mint,
			ExplorerURL: explorerURL,
			Error:       msg,
		}
	}

	cred := flatten(*asset, asset.Ownership.Owner)
	return domain.VerificationResult{
		Valid:            true,
		Mint:             mint,
		Owner:            cred.Owner,
		Name:             cred.Name,
		Image:            cred.Image,
		Track:            cred.Track,
		Level:            cred.Level,
		XP:               cred.XP,
		CoursesCompleted: cred.CoursesCompleted,
		MetadataURI:      cred.MetadataURI,
		ExplorerURL:      explorerURL,
	}
}

func (s *Service) explorerURL(mint string) string {
	url := fmt.Sprintf("%s/address/%s", s.chainCfg.ExplorerURL, mint)
	if s.dasCfg.Network == "devnet" {
		url += "?cluster=devnet"
	}
	return url
}

// flatten maps a raw asset onto the credential record, pulling the known
// metadata attributes out of the trait list. Absent or unparseable numeric
// attributes stay nil rather than defaulting to zero.
func flatten(asset das.Asset, owner string) domain.Credential {
	cred := domain.Credential{
		Mint:        asset.ID,
		Owner:       owner,
		Name:        asset.Content.Metadata.Name,
		Image:       asset.Content.Links.Image,
		MetadataURI: asset.Content.JSONURI,
		Verified:    true,
	}

	for _, attr := range asset.Content.Metadata.Attributes {
		switch attr.TraitType {
		case "track":
			if v, ok := attr.Value.(string); ok {
				cred.Track = v
			}
		case "level":
			cred.Level = attrInt(attr.Value)
		case "xp":
			cred.XP = attrInt64(attr.Value)
		case "coursesCompleted":
			cred.CoursesCompleted = attrInt(attr.Value)
		}
	}
	return cred
}

// attrInt parses an attribute value that may arrive as a JSON number or a
// numeric string. nil means absent/unparseable.
func attrInt(v any) *int {
	if n := attrInt64(v); n != nil {
		i := int(*n)
		return &i
	}
	return nil
}

func attrInt64(v any) *int64 {
	switch val := v.(type) {
	case float64:
		n := int64(val)
		return &n
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return &n
		}
	}
	return nil
}
