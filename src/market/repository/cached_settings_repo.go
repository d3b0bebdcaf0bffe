package repository

import (
	"context"
	"time"

	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/patrickmn/go-cache"
)

var _ domain.SettingsRepository = (*CachedSettingsRepo)(nil)

// CachedSettingsRepo memoizes royalty lookups, which every purchase performs.
// Collections without a royalty are cached too. Writes go through this repo so
// they evict the stale entry; other writers are seen once the TTL passes.
type CachedSettingsRepo struct {
	domain.SettingsRepository
	royalties *cache.Cache
}

// noRoyalty marks a collection known to have no royalty configured.
type noRoyalty struct{}

func NewCachedSettingsRepo(inner domain.SettingsRepository, ttl time.Duration) *CachedSettingsRepo {
	return &CachedSettingsRepo{
		SettingsRepository: inner,
		royalties:          cache.New(ttl, 2*ttl),
	}
}

func (r *CachedSettingsRepo) GetRoyalty(ctx context.Context, contract string) (*domain.RoyaltyConfig, error) {
	if cached, found := r.royalties.Get(contract); found {
		switch v := cached.(type) {
		case noRoyalty:
			return nil, nil
		case domain.RoyaltyConfig:
			return &v, nil
		}
	}
	c, err := r.SettingsRepository.GetRoyalty(ctx, contract)
	if err != nil {
		return nil, err
	}
	if c == nil {
		r.royalties.Set(contract, noRoyalty{}, cache.DefaultExpiration)
		return nil, nil
	}
	r.royalties.Set(contract, *c, cache.DefaultExpiration)
	return c, nil
}

func (r *CachedSettingsRepo) SaveRoyalty(ctx context.Context, c *domain.RoyaltyConfig) error {
	if err := r.SettingsRepository.SaveRoyalty(ctx, c); err != nil {
		return err
	}
	r.royalties.Delete(c.Contract)
	return nil
}
