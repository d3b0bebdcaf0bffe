package repository

import (
	"context"
	"sync"

	"github.com/MMN3003/nftmarket/src/market/domain"
)

var _ domain.SettingsRepository = (*MemorySettingsRepo)(nil)

type MemorySettingsRepo struct {
	mu         sync.RWMutex
	serviceFee *domain.BasisPoints
	royalties  map[string]domain.RoyaltyConfig
}

func NewMemorySettingsRepo() *MemorySettingsRepo {
	return &MemorySettingsRepo{royalties: make(map[string]domain.RoyaltyConfig)}
}

func (r *MemorySettingsRepo) GetServiceFee(_ context.Context) (*domain.BasisPoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.serviceFee == nil {
		return nil, nil
	}
	rate := *r.serviceFee
	return &rate, nil
}

func (r *MemorySettingsRepo) SetServiceFee(_ context.Context, rate domain.BasisPoints) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serviceFee = &rate
	return nil
}

func (r *MemorySettingsRepo) GetRoyalty(_ context.Context, contract string) (*domain.RoyaltyConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.royalties[contract]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemorySettingsRepo) SaveRoyalty(_ context.Context, c *domain.RoyaltyConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.royalties[c.Contract] = *c
	return nil
}

func (r *MemorySettingsRepo) MaxRoyaltyRate(_ context.Context) (domain.BasisPoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max domain.BasisPoints
	for _, c := range r.royalties {
		if c.Rate > max {
			max = c.Rate
		}
	}
	return max, nil
}
