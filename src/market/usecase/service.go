package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/MMN3003/nftmarket/src/config"
	"github.com/MMN3003/nftmarket/src/lockmap"
	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/MMN3003/nftmarket/src/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ domain.MarketUseCase = (*Service)(nil)

// Service is the marketplace ledger. Transitions of one listing are serialized
// by a per-listing lock; listing creation is serialized per asset.
type Service struct {
	listings domain.ListingRepository
	settings domain.SettingsRepository
	registry domain.AssetRegistry
	payments domain.PaymentGateway
	logger   *logger.Logger
	metrics  *metrics.Metrics
	locks    *lockmap.Lockmap

	admin                domain.Account
	escrow               domain.Account
	reconcileConcurrency int

	// ratesMu guards serviceFee and keeps fee/royalty validation atomic.
	ratesMu    sync.RWMutex
	serviceFee domain.BasisPoints

	now func() time.Time
}

func NewService(
	ctx context.Context,
	listings domain.ListingRepository,
	settings domain.SettingsRepository,
	registry domain.AssetRegistry,
	payments domain.PaymentGateway,
	logg *logger.Logger,
	cfg *config.Config,
	m *metrics.Metrics,
) (*Service, error) {
	if cfg.Market.AdminAccount == "" || cfg.Market.EscrowAccount == "" {
		return nil, errors.New("admin and escrow accounts are required")
	}
	s := &Service{
		listings:             listings,
		settings:             settings,
		registry:             registry,
		payments:             payments,
		logger:               logg,
		metrics:              m,
		locks:                lockmap.New(64),
		admin:                domain.Account(cfg.Market.AdminAccount),
		escrow:               domain.Account(cfg.Market.EscrowAccount),
		reconcileConcurrency: cfg.Reconcile.Concurrency,
		now:                  time.Now,
	}
	if s.reconcileConcurrency < 1 {
		s.reconcileConcurrency = 1
	}

	stored, err := settings.GetServiceFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("load service fee: %w", err)
	}
	if stored != nil {
		s.serviceFee = *stored
		return s, nil
	}
	fee := domain.BasisPoints(cfg.Market.DefaultServiceFee)
	if !fee.Valid() {
		return nil, fmt.Errorf("%w: default service fee %d bp", domain.ErrInvalidRate, fee)
	}
	if err := settings.SetServiceFee(ctx, fee); err != nil {
		return nil, fmt.Errorf("store default service fee: %w", err)
	}
	s.serviceFee = fee
	return s, nil
}

// Admin is the account receiving service fees and allowed to change them.
func (s *Service) Admin() domain.Account { return s.admin }

// Escrow is the account holding listed assets.
func (s *Service) Escrow() domain.Account { return s.escrow }

// AddItemToMarket moves the asset into escrow and records an active listing.
func (s *Service) AddItemToMarket(ctx context.Context, caller domain.Account, asset domain.AssetRef, price decimal.Decimal) (uint, error) {
	id, err := s.addItemToMarket(ctx, caller, asset, price)
	if err != nil {
		s.fail("add_item", err)
		return 0, err
	}
	return id, nil
}

func (s *Service) addItemToMarket(ctx context.Context, caller domain.Account, asset domain.AssetRef, price decimal.Decimal) (uint, error) {
	if !price.IsPositive() || !price.IsInteger() {
		return 0, fmt.Errorf("%w: price must be a positive whole amount, got %s", domain.ErrInvalidPrice, price)
	}

	key := assetKey(asset)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.listings.GetActiveListingByAsset(ctx, asset)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: %s is listing %d", domain.ErrAlreadyListed, asset, existing.ID)
	}

	custodian, err := s.registry.CustodyOf(ctx, asset)
	if err != nil {
		return 0, registryErr("custody of "+asset.String(), err)
	}
	if custodian != caller {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotOwner, asset)
	}
	approved, err := s.registry.IsTransferApproved(ctx, asset, s.escrow)
	if err != nil {
		return 0, registryErr("approval of "+asset.String(), err)
	}
	if !approved {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotApproved, asset)
	}

	j := newJournal(s.logger)
	if err := s.registry.TransferCustody(ctx, asset, caller, s.escrow); err != nil {
		return 0, registryErr("escrow "+asset.String(), err)
	}
	j.push("return "+asset.String()+" to seller", func(ctx context.Context) error {
		return s.registry.TransferCustody(ctx, asset, s.escrow, caller)
	})

	now := s.now()
	listing, err := s.listings.SaveListing(ctx, &domain.Listing{
		Asset:     asset,
		Price:     price,
		Seller:    caller,
		ForSale:   true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		j.rollback(ctx)
		return 0, fmt.Errorf("save listing: %w", err)
	}

	s.metrics.ListingCreated()
	s.logger.WithFields(map[string]interface{}{
		"listing_id": listing.ID,
		"asset":      asset.String(),
		"seller":     caller,
		"price":      price.String(),
	}).Infof("listing %d created", listing.ID)
	return listing.ID, nil
}

func (s *Service) GetItem(ctx context.Context, id uint) (*domain.Listing, error) {
	l, err := s.listings.GetListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	return l, nil
}

func (s *Service) ListActiveItems(ctx context.Context) ([]*domain.Listing, error) {
	return s.listings.GetActiveListings(ctx)
}

// BuyItem settles a sale: disburses royalty, fee and proceeds out of the buyer's
// payment, hands the asset to the buyer and retires the listing. Any failure
// before delivery leaves listing, balances and custody as they were.
func (s *Service) BuyItem(ctx context.Context, buyer domain.Account, id uint, payment decimal.Decimal) (*domain.SaleReceipt, error) {
	receipt, err := s.buyItem(ctx, buyer, id, payment)
	if err != nil {
		s.fail("buy_item", err)
		return nil, err
	}
	return receipt, nil
}

func (s *Service) buyItem(ctx context.Context, buyer domain.Account, id uint, payment decimal.Decimal) (*domain.SaleReceipt, error) {
	key := listingKey(id)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	listing, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.ForSale {
		return nil, fmt.Errorf("%w: listing %d", domain.ErrNotForSale, id)
	}
	if !payment.Equal(listing.Price) {
		return nil, fmt.Errorf("%w: listing %d costs %s, got %s", domain.ErrWrongPrice, id, listing.Price, payment)
	}

	akey := assetKey(listing.Asset)
	s.locks.Lock(akey)
	defer s.locks.Unlock(akey)

	split, royalty, err := s.quote(ctx, listing)
	if err != nil {
		return nil, err
	}

	tx, err := s.payments.Begin(ctx, buyer, payment)
	if err != nil {
		return nil, paymentErr("hold payment", err)
	}
	j := newJournal(s.logger)
	j.push("release payment hold", tx.Rollback)

	var royaltyRecipient *domain.Account
	if royalty != nil && split.Royalty.IsPositive() {
		recipient := royalty.Recipient
		royaltyRecipient = &recipient
	}
	payouts := []struct {
		to     *domain.Account
		amount decimal.Decimal
	}{
		{royaltyRecipient, split.Royalty},
		{&s.admin, split.Fee},
		{&listing.Seller, split.SellerProceeds},
	}
	for _, p := range payouts {
		if p.to == nil || !p.amount.IsPositive() {
			continue
		}
		if err := tx.Pay(ctx, *p.to, p.amount); err != nil {
			j.rollback(ctx)
			return nil, paymentErr("pay "+string(*p.to), err)
		}
	}

	// Retire before delivery: once the buyer holds the asset escrow cannot take it back.
	soldAt := s.now()
	sold := *listing
	sold.ForSale = false
	sold.Buyer = &buyer
	sold.UpdatedAt = soldAt
	if err := s.listings.UpdateListing(ctx, &sold); err != nil {
		j.rollback(ctx)
		return nil, fmt.Errorf("retire listing %d: %w", id, err)
	}
	j.push(fmt.Sprintf("reactivate listing %d", id), func(ctx context.Context) error {
		return s.listings.UpdateListing(ctx, listing)
	})

	if err := s.registry.TransferCustody(ctx, listing.Asset, s.escrow, buyer); err != nil {
		j.rollback(ctx)
		return nil, registryErr("deliver "+listing.Asset.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		// The asset is already out of escrow; the reactivated listing is
		// reported by the next reconciliation.
		s.logger.WithFields(map[string]interface{}{
			"listing_id": id,
			"asset":      listing.Asset.String(),
			"buyer":      buyer,
		}).Errorf("payment commit failed after delivery: %v", err)
		j.rollback(ctx)
		return nil, paymentErr("commit", err)
	}

	receipt := &domain.SaleReceipt{
		ID:               uuid.New(),
		ListingID:        id,
		Asset:            listing.Asset,
		Seller:           listing.Seller,
		Buyer:            buyer,
		FeeRecipient:     s.admin,
		RoyaltyRecipient: royaltyRecipient,
		Split:            split,
		SoldAt:           soldAt,
	}
	s.metrics.Sold(split.Fee, split.Royalty, split.SellerProceeds)
	s.logger.WithFields(map[string]interface{}{
		"listing_id": id,
		"receipt_id": receipt.ID.String(),
		"asset":      listing.Asset.String(),
		"seller":     listing.Seller,
		"buyer":      buyer,
		"fee":        split.Fee.String(),
		"royalty":    split.Royalty.String(),
		"proceeds":   split.SellerProceeds.String(),
	}).Infof("listing %d sold", id)
	return receipt, nil
}

// quote reads the fee and royalty as one consistent pair.
func (s *Service) quote(ctx context.Context, listing *domain.Listing) (domain.Split, *domain.RoyaltyConfig, error) {
	s.ratesMu.RLock()
	defer s.ratesMu.RUnlock()

	royalty, err := s.settings.GetRoyalty(ctx, listing.Asset.Contract)
	if err != nil {
		return domain.Split{}, nil, fmt.Errorf("load royalty: %w", err)
	}
	var rate domain.BasisPoints
	if royalty != nil {
		rate = royalty.Rate
	}
	split, err := CalculateSplit(listing.Price, s.serviceFee, rate)
	if err != nil {
		return domain.Split{}, nil, err
	}
	return split, royalty, nil
}

// CancelSaleFromMarket returns the asset to its seller and retires the listing.
func (s *Service) CancelSaleFromMarket(ctx context.Context, caller domain.Account, id uint) error {
	if err := s.cancelSaleFromMarket(ctx, caller, id); err != nil {
		s.fail("cancel_item", err)
		return err
	}
	return nil
}

func (s *Service) cancelSaleFromMarket(ctx context.Context, caller domain.Account, id uint) error {
	key := listingKey(id)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	listing, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if !listing.ForSale {
		return fmt.Errorf("%w: listing %d", domain.ErrNotForSale, id)
	}
	if listing.Seller != caller {
		return fmt.Errorf("%w: listing %d", domain.ErrNotSeller, id)
	}

	akey := assetKey(listing.Asset)
	s.locks.Lock(akey)
	defer s.locks.Unlock(akey)

	cancelled := *listing
	cancelled.ForSale = false
	cancelled.UpdatedAt = s.now()
	if err := s.listings.UpdateListing(ctx, &cancelled); err != nil {
		return fmt.Errorf("retire listing %d: %w", id, err)
	}

	if err := s.registry.TransferCustody(ctx, listing.Asset, s.escrow, listing.Seller); err != nil {
		if uerr := s.listings.UpdateListing(context.WithoutCancel(ctx), listing); uerr != nil {
			s.logger.WithField("listing_id", id).Errorf("reactivate listing: %v", uerr)
		}
		return registryErr("return "+listing.Asset.String(), err)
	}

	s.metrics.Cancelled()
	s.logger.WithFields(map[string]interface{}{
		"listing_id": id,
		"asset":      listing.Asset.String(),
		"seller":     listing.Seller,
	}).Infof("listing %d cancelled", id)
	return nil
}

func (s *Service) GetServiceFee(_ context.Context) domain.BasisPoints {
	s.ratesMu.RLock()
	defer s.ratesMu.RUnlock()
	return s.serviceFee
}

// SetServiceFee is restricted to the admin account. The new fee plus the
// largest configured royalty must not exceed 100%.
func (s *Service) SetServiceFee(ctx context.Context, caller domain.Account, rate domain.BasisPoints) error {
	if err := s.setServiceFee(ctx, caller, rate); err != nil {
		s.fail("set_service_fee", err)
		return err
	}
	return nil
}

func (s *Service) setServiceFee(ctx context.Context, caller domain.Account, rate domain.BasisPoints) error {
	if caller != s.admin {
		return fmt.Errorf("%w: only the marketplace admin may set the service fee", domain.ErrUnauthorized)
	}
	if !rate.Valid() {
		return fmt.Errorf("%w: %d bp", domain.ErrInvalidRate, rate)
	}

	s.ratesMu.Lock()
	defer s.ratesMu.Unlock()

	maxRoyalty, err := s.settings.MaxRoyaltyRate(ctx)
	if err != nil {
		return fmt.Errorf("load royalties: %w", err)
	}
	if err := validateCombinedRates(rate, maxRoyalty); err != nil {
		return err
	}
	if err := s.settings.SetServiceFee(ctx, rate); err != nil {
		return fmt.Errorf("store service fee: %w", err)
	}
	s.logger.Infof("service fee changed from %d bp to %d bp", s.serviceFee, rate)
	s.serviceFee = rate
	return nil
}

// SetRoyalties is restricted to the collection owner, who also becomes the
// royalty recipient.
func (s *Service) SetRoyalties(ctx context.Context, caller domain.Account, contract string, rate domain.BasisPoints) error {
	if err := s.setRoyalties(ctx, caller, contract, rate); err != nil {
		s.fail("set_royalties", err)
		return err
	}
	return nil
}

func (s *Service) setRoyalties(ctx context.Context, caller domain.Account, contract string, rate domain.BasisPoints) error {
	if !rate.Valid() {
		return fmt.Errorf("%w: %d bp", domain.ErrInvalidRate, rate)
	}
	owner, err := s.registry.CollectionOwner(ctx, contract)
	if err != nil {
		return registryErr("owner of "+contract, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: only the owner of %s may set its royalties", domain.ErrUnauthorized, contract)
	}

	s.ratesMu.Lock()
	defer s.ratesMu.Unlock()

	if err := validateCombinedRates(s.serviceFee, rate); err != nil {
		return err
	}
	if err := s.settings.SaveRoyalty(ctx, &domain.RoyaltyConfig{
		Contract:  contract,
		Rate:      rate,
		Recipient: caller,
		UpdatedAt: s.now(),
	}); err != nil {
		return fmt.Errorf("store royalty: %w", err)
	}
	s.logger.Infof("royalty for %s set to %d bp, recipient %s", contract, rate, caller)
	return nil
}

// GetRoyalties returns 0 for collections that were never configured.
func (s *Service) GetRoyalties(ctx context.Context, contract string) (domain.BasisPoints, error) {
	cfg, err := s.GetRoyaltyConfig(ctx, contract)
	if err != nil || cfg == nil {
		return 0, err
	}
	return cfg.Rate, nil
}

func (s *Service) GetRoyaltyConfig(ctx context.Context, contract string) (*domain.RoyaltyConfig, error) {
	return s.settings.GetRoyalty(ctx, contract)
}

func (s *Service) fail(operation string, err error) {
	s.metrics.Failed(operation, domain.Kind(err))
	s.logger.Errorf("%s failed: %v", operation, err)
}

func listingKey(id uint) string {
	return "listing:" + strconv.FormatUint(uint64(id), 10)
}

func assetKey(asset domain.AssetRef) string {
	return "asset:" + asset.String()
}

func registryErr(op string, err error) error {
	if errors.Is(err, domain.ErrRegistryFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrRegistryFailure, op, err)
}

func paymentErr(op string, err error) error {
	if errors.Is(err, domain.ErrPaymentFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPaymentFailure, op, err)
}
