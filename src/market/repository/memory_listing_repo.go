package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/MMN3003/nftmarket/src/market/domain"
)

var _ domain.ListingRepository = (*MemoryListingRepo)(nil)

// MemoryListingRepo stores listings in process. Callers always receive copies.
type MemoryListingRepo struct {
	mu       sync.RWMutex
	lastID   uint
	listings map[uint]*domain.Listing
}

func NewMemoryListingRepo() *MemoryListingRepo {
	return &MemoryListingRepo{listings: make(map[uint]*domain.Listing)}
}

func (r *MemoryListingRepo) SaveListing(_ context.Context, l *domain.Listing) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	stored := copyListing(l)
	stored.ID = r.lastID
	r.listings[stored.ID] = stored
	return copyListing(stored), nil
}

func (r *MemoryListingRepo) GetListingByID(_ context.Context, id uint) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	return copyListing(l), nil
}

func (r *MemoryListingRepo) UpdateListing(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[l.ID]; !ok {
		return domain.ErrNotFound
	}
	r.listings[l.ID] = copyListing(l)
	return nil
}

func (r *MemoryListingRepo) GetActiveListingByAsset(_ context.Context, asset domain.AssetRef) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.listings {
		if l.ForSale && l.Asset == asset {
			return copyListing(l), nil
		}
	}
	return nil, nil
}

func (r *MemoryListingRepo) GetActiveListings(_ context.Context) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if l.ForSale {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyListing(l *domain.Listing) *domain.Listing {
	c := *l
	if l.Buyer != nil {
		buyer := *l.Buyer
		c.Buyer = &buyer
	}
	return &c
}
