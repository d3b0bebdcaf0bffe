package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MMN3003/nftmarket/src/market/domain"
	"golang.org/x/sync/errgroup"
)

// ReconcileEscrow checks that every active listing's asset is still held by
// escrow. Each listing is checked under its own lock so in-flight sales are
// never reported.
func (s *Service) ReconcileEscrow(ctx context.Context) ([]domain.Discrepancy, error) {
	active, err := s.listings.GetActiveListings(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out []domain.Discrepancy
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reconcileConcurrency)
	for _, l := range active {
		id := l.ID
		g.Go(func() error {
			d, err := s.checkEscrow(ctx, id)
			if err != nil || d == nil {
				return err
			}
			mu.Lock()
			out = append(out, *d)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ListingID < out[j].ListingID })
	s.metrics.EscrowDiscrepancies(len(out))
	for _, d := range out {
		s.logger.Warnf("listing %d: %s held by %s instead of escrow", d.ListingID, d.Asset, d.Custodian)
	}
	s.logger.Infof("escrow reconciliation checked %d listings, %d discrepancies", len(active), len(out))
	return out, nil
}

func (s *Service) checkEscrow(ctx context.Context, id uint) (*domain.Discrepancy, error) {
	key := listingKey(id)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	listing, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil || !listing.ForSale {
		return nil, nil
	}
	custodian, err := s.registry.CustodyOf(ctx, listing.Asset)
	if err != nil {
		return nil, registryErr(fmt.Sprintf("custody of listing %d", id), err)
	}
	if custodian == s.escrow {
		return nil, nil
	}
	return &domain.Discrepancy{ListingID: id, Asset: listing.Asset, Custodian: custodian}, nil
}
