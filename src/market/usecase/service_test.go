package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MMN3003/nftmarket/src/config"
	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/adapter/payment"
	"github.com/MMN3003/nftmarket/src/market/adapter/registry"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/MMN3003/nftmarket/src/market/domain/mocks"
	"github.com/MMN3003/nftmarket/src/market/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	admin   = domain.Account("admin")
	escrow  = domain.Account("escrow")
	creator = domain.Account("creator")
	seller  = domain.Account("seller")
	buyer   = domain.Account("buyer")
)

func testConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{
			AdminAccount:      string(admin),
			EscrowAccount:     string(escrow),
			DefaultServiceFee: 250,
		},
		Reconcile: config.ReconcileConfig{Concurrency: 4},
	}
}

type fixture struct {
	svc      *Service
	registry *registry.MemoryRegistry
	bank     *payment.MemoryBank
	listings *repository.MemoryListingRepo
	settings *repository.MemorySettingsRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logg := logger.NewNop()
	f := &fixture{
		registry: registry.NewMemoryRegistry(escrow, logg),
		bank:     payment.NewMemoryBank(logg),
		listings: repository.NewMemoryListingRepo(),
		settings: repository.NewMemorySettingsRepo(),
	}
	svc, err := NewService(context.Background(), f.listings, f.settings, f.registry, f.bank, logg, testConfig(), nil)
	require.NoError(t, err)
	f.svc = svc
	require.NoError(t, f.registry.CreateCollection("nft", creator, "MyToken", "TKN"))
	return f
}

// listable mints a token to [owner] and approves escrow for it.
func (f *fixture) listable(t *testing.T, owner domain.Account) domain.AssetRef {
	t.Helper()
	id, err := f.registry.Mint("nft", owner)
	require.NoError(t, err)
	asset := domain.AssetRef{Contract: "nft", TokenID: id}
	require.NoError(t, f.registry.Approve(owner, asset, escrow))
	return asset
}

func (f *fixture) list(t *testing.T, price int64) (uint, domain.AssetRef) {
	t.Helper()
	asset := f.listable(t, seller)
	id, err := f.svc.AddItemToMarket(context.Background(), seller, asset, decimal.NewFromInt(price))
	require.NoError(t, err)
	return id, asset
}

func (f *fixture) fund(t *testing.T, account domain.Account, amount decimal.Decimal) {
	t.Helper()
	require.NoError(t, f.bank.Deposit(account, amount))
}

func (f *fixture) balance(t *testing.T, account domain.Account) decimal.Decimal {
	t.Helper()
	b, err := f.bank.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b
}

func (f *fixture) custody(t *testing.T, asset domain.AssetRef) domain.Account {
	t.Helper()
	c, err := f.registry.CustodyOf(context.Background(), asset)
	require.NoError(t, err)
	return c
}

func TestListAndBuyWithRoyalty(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	price := decimal.RequireFromString("1000000000000000000")

	require.NoError(f.svc.SetRoyalties(ctx, creator, "nft", 10))
	asset := f.listable(t, seller)
	id, err := f.svc.AddItemToMarket(ctx, seller, asset, price)
	require.NoError(err)
	require.Equal(uint(1), id)
	require.Equal(escrow, f.custody(t, asset))

	f.fund(t, buyer, price)
	receipt, err := f.svc.BuyItem(ctx, buyer, id, price)
	require.NoError(err)

	n, err := f.registry.BalanceOf("nft", buyer)
	require.NoError(err)
	require.Equal(uint64(1), n)
	require.Equal(buyer, f.custody(t, asset))

	require.Equal("1000000000000000", receipt.Split.Royalty.String())
	require.Equal("25000000000000000", receipt.Split.Fee.String())
	require.Equal("974000000000000000", receipt.Split.SellerProceeds.String())
	require.Equal(creator, *receipt.RoyaltyRecipient)
	require.Equal(admin, receipt.FeeRecipient)

	require.True(f.balance(t, seller).Equal(price.Sub(receipt.Split.Fee).Sub(receipt.Split.Royalty)))
	require.True(f.balance(t, admin).Equal(receipt.Split.Fee))
	require.True(f.balance(t, creator).Equal(receipt.Split.Royalty))
	require.True(f.balance(t, buyer).IsZero())

	listing, err := f.svc.GetItem(ctx, id)
	require.NoError(err)
	require.False(listing.ForSale)
	require.True(listing.Sold())
	require.Equal(buyer, *listing.Buyer)

	active, err := f.svc.ListActiveItems(ctx)
	require.NoError(err)
	require.Empty(active)
}

func TestBuyWithWrongPrice(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	id, asset := f.list(t, 1000)
	f.fund(t, buyer, decimal.NewFromInt(2000))

	for _, p := range []int64{999, 1001, 0} {
		_, err := f.svc.BuyItem(ctx, buyer, id, decimal.NewFromInt(p))
		require.ErrorIs(err, domain.ErrWrongPrice)
	}

	listing, err := f.svc.GetItem(ctx, id)
	require.NoError(err)
	require.True(listing.ForSale)
	require.Equal(escrow, f.custody(t, asset))
	require.Equal("2000", f.balance(t, buyer).String())
}

func TestListingRetiresExactlyOnce(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, buyer, decimal.NewFromInt(10000))

	sold, _ := f.list(t, 1000)
	_, err := f.svc.BuyItem(ctx, buyer, sold, decimal.NewFromInt(1000))
	require.NoError(err)
	require.ErrorIs(f.svc.CancelSaleFromMarket(ctx, seller, sold), domain.ErrNotForSale)
	_, err = f.svc.BuyItem(ctx, buyer, sold, decimal.NewFromInt(1000))
	require.ErrorIs(err, domain.ErrNotForSale)

	cancelled, _ := f.list(t, 1000)
	require.NoError(f.svc.CancelSaleFromMarket(ctx, seller, cancelled))
	_, err = f.svc.BuyItem(ctx, buyer, cancelled, decimal.NewFromInt(1000))
	require.ErrorIs(err, domain.ErrNotForSale)
	require.ErrorIs(f.svc.CancelSaleFromMarket(ctx, seller, cancelled), domain.ErrNotForSale)

	listing, err := f.svc.GetItem(ctx, cancelled)
	require.NoError(err)
	require.False(listing.ForSale)
	require.False(listing.Sold())
}

func TestCancelRestoresCustody(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	asset := f.listable(t, seller)

	before, err := f.registry.BalanceOf("nft", seller)
	require.NoError(err)
	id, err := f.svc.AddItemToMarket(ctx, seller, asset, decimal.NewFromInt(5))
	require.NoError(err)

	require.ErrorIs(f.svc.CancelSaleFromMarket(ctx, buyer, id), domain.ErrNotSeller)
	require.NoError(f.svc.CancelSaleFromMarket(ctx, seller, id))

	after, err := f.registry.BalanceOf("nft", seller)
	require.NoError(err)
	require.Equal(before, after)
	require.Equal(seller, f.custody(t, asset))
	require.True(f.balance(t, seller).IsZero(), "cancel moves no funds")

	// the asset may be listed again under a fresh id
	require.NoError(f.registry.Approve(seller, asset, escrow))
	again, err := f.svc.AddItemToMarket(ctx, seller, asset, decimal.NewFromInt(5))
	require.NoError(err)
	require.Equal(id+1, again)
}

func TestAddItemPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	approved := f.listable(t, seller)
	unapproved, err := f.registry.Mint("nft", seller)
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller domain.Account
		asset  domain.AssetRef
		price  decimal.Decimal
		want   error
	}{
		{"not owner", buyer, approved, decimal.NewFromInt(1), domain.ErrNotOwner},
		{"not approved", seller, domain.AssetRef{Contract: "nft", TokenID: unapproved}, decimal.NewFromInt(1), domain.ErrNotApproved},
		{"zero price", seller, approved, decimal.Zero, domain.ErrInvalidPrice},
		{"negative price", seller, approved, decimal.NewFromInt(-1), domain.ErrInvalidPrice},
		{"fractional price", seller, approved, decimal.RequireFromString("1.5"), domain.ErrInvalidPrice},
		{"unknown token", seller, domain.AssetRef{Contract: "nft", TokenID: 99}, decimal.NewFromInt(1), domain.ErrRegistryFailure},
		{"unknown collection", seller, domain.AssetRef{Contract: "other", TokenID: 1}, decimal.NewFromInt(1), domain.ErrRegistryFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItemToMarket(ctx, tt.caller, tt.asset, tt.price)
			require.ErrorIs(t, err, tt.want)
		})
	}

	id, err := f.svc.AddItemToMarket(ctx, seller, approved, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = f.svc.AddItemToMarket(ctx, seller, approved, decimal.NewFromInt(2))
	require.ErrorIs(t, err, domain.ErrAlreadyListed)

	listing, err := f.svc.GetItem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "1", listing.Price.String())
}

func TestGetItemNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetItem(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.BuyItem(context.Background(), buyer, 1, decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, f.svc.CancelSaleFromMarket(context.Background(), seller, 1), domain.ErrNotFound)
}

func TestServiceFee(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	require.Equal(domain.BasisPoints(250), f.svc.GetServiceFee(ctx))
	require.NoError(f.svc.SetServiceFee(ctx, admin, 2000))
	require.Equal(domain.BasisPoints(2000), f.svc.GetServiceFee(ctx))

	require.ErrorIs(f.svc.SetServiceFee(ctx, seller, 100), domain.ErrUnauthorized)
	require.ErrorIs(f.svc.SetServiceFee(ctx, admin, 10001), domain.ErrInvalidRate)
	require.Equal(domain.BasisPoints(2000), f.svc.GetServiceFee(ctx))

	stored, err := f.settings.GetServiceFee(ctx)
	require.NoError(err)
	require.Equal(domain.BasisPoints(2000), *stored)
}

func TestRoyalties(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	rate, err := f.svc.GetRoyalties(ctx, "nft")
	require.NoError(err)
	require.Zero(rate)

	require.NoError(f.svc.SetRoyalties(ctx, creator, "nft", 10))
	rate, err = f.svc.GetRoyalties(ctx, "nft")
	require.NoError(err)
	require.Equal(domain.BasisPoints(10), rate)

	cfg, err := f.svc.GetRoyaltyConfig(ctx, "nft")
	require.NoError(err)
	require.Equal(creator, cfg.Recipient)

	require.ErrorIs(f.svc.SetRoyalties(ctx, seller, "nft", 20), domain.ErrUnauthorized)
	require.ErrorIs(f.svc.SetRoyalties(ctx, creator, "nft", 10001), domain.ErrInvalidRate)
	require.ErrorIs(f.svc.SetRoyalties(ctx, creator, "missing", 20), domain.ErrRegistryFailure)
}

func TestCombinedRatesNeverExceedPrice(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(f.svc.SetServiceFee(ctx, admin, 2000))
	require.ErrorIs(f.svc.SetRoyalties(ctx, creator, "nft", 8001), domain.ErrInvalidRate)
	require.NoError(f.svc.SetRoyalties(ctx, creator, "nft", 8000))
	require.ErrorIs(f.svc.SetServiceFee(ctx, admin, 2001), domain.ErrInvalidRate)

	// the whole price goes to fee and royalty, none to the seller
	id, _ := f.list(t, 999)
	f.fund(t, buyer, decimal.NewFromInt(999))
	receipt, err := f.svc.BuyItem(ctx, buyer, id, decimal.NewFromInt(999))
	require.NoError(err)
	require.Equal("199", receipt.Split.Fee.String())
	require.Equal("799", receipt.Split.Royalty.String())
	require.Equal("1", receipt.Split.SellerProceeds.String())
}

func TestConcurrentRateUpdatesStayValid(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(f.svc.SetServiceFee(ctx, admin, 0))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = f.svc.SetServiceFee(ctx, admin, 6000)
	}()
	go func() {
		defer wg.Done()
		errs[1] = f.svc.SetRoyalties(ctx, creator, "nft", 6000)
	}()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(err, domain.ErrInvalidRate)
			failed++
		}
	}
	require.Equal(1, failed)
	royalty, err := f.svc.GetRoyalties(ctx, "nft")
	require.NoError(err)
	require.LessOrEqual(f.svc.GetServiceFee(ctx)+royalty, domain.MaxBasisPoints)
}

func TestBuyWithInsufficientFundsChangesNothing(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	id, asset := f.list(t, 1000)
	f.fund(t, buyer, decimal.NewFromInt(999))

	_, err := f.svc.BuyItem(ctx, buyer, id, decimal.NewFromInt(1000))
	require.ErrorIs(err, domain.ErrPaymentFailure)

	require.Equal("999", f.balance(t, buyer).String())
	require.True(f.balance(t, seller).IsZero())
	require.True(f.balance(t, admin).IsZero())
	require.Equal(escrow, f.custody(t, asset))
	listing, err := f.svc.GetItem(ctx, id)
	require.NoError(err)
	require.True(listing.ForSale)
}

func TestConcurrentBuysSellOnce(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	id, asset := f.list(t, 1000)

	const buyers = 16
	var (
		wg   sync.WaitGroup
		errs = make([]error, buyers)
	)
	for i := 0; i < buyers; i++ {
		b := domain.Account(fmt.Sprintf("buyer-%d", i))
		f.fund(t, b, decimal.NewFromInt(1000))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.BuyItem(ctx, b, id, decimal.NewFromInt(1000))
		}(i)
	}
	wg.Wait()

	var wins []domain.Account
	for i, err := range errs {
		if err == nil {
			wins = append(wins, domain.Account(fmt.Sprintf("buyer-%d", i)))
			continue
		}
		require.ErrorIs(err, domain.ErrNotForSale)
	}
	require.Len(wins, 1)
	require.Equal(wins[0], f.custody(t, asset))
	require.Equal("975", f.balance(t, seller).String())
	for i := 0; i < buyers; i++ {
		b := domain.Account(fmt.Sprintf("buyer-%d", i))
		if b == wins[0] {
			require.True(f.balance(t, b).IsZero())
			continue
		}
		require.Equal("1000", f.balance(t, b).String())
	}
}

func TestCancelRacingBuy(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		id, asset := f.list(t, 1000)
		f.fund(t, buyer, decimal.NewFromInt(1000))

		var (
			wg        sync.WaitGroup
			buyErr    error
			cancelErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, buyErr = f.svc.BuyItem(ctx, buyer, id, decimal.NewFromInt(1000))
		}()
		go func() {
			defer wg.Done()
			cancelErr = f.svc.CancelSaleFromMarket(ctx, seller, id)
		}()
		wg.Wait()

		if buyErr == nil {
			require.ErrorIs(t, cancelErr, domain.ErrNotForSale)
			require.Equal(t, buyer, f.custody(t, asset))
			continue
		}
		require.NoError(t, cancelErr)
		require.ErrorIs(t, buyErr, domain.ErrNotForSale)
		require.Equal(t, seller, f.custody(t, asset))
		require.Equal(t, "1000", f.balance(t, buyer).String())
	}
}

func TestNewServiceLoadsStoredFee(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	logg := logger.NewNop()
	settings := repository.NewMemorySettingsRepo()
	require.NoError(settings.SetServiceFee(ctx, 700))

	svc, err := NewService(ctx, repository.NewMemoryListingRepo(), settings, nil, nil, logg, testConfig(), nil)
	require.NoError(err)
	require.Equal(domain.BasisPoints(700), svc.GetServiceFee(ctx))

	cfg := testConfig()
	cfg.Market.DefaultServiceFee = 10001
	_, err = NewService(ctx, repository.NewMemoryListingRepo(), repository.NewMemorySettingsRepo(), nil, nil, logg, cfg, nil)
	require.ErrorIs(err, domain.ErrInvalidRate)

	cfg = testConfig()
	cfg.Market.EscrowAccount = ""
	_, err = NewService(ctx, repository.NewMemoryListingRepo(), repository.NewMemorySettingsRepo(), nil, nil, logg, cfg, nil)
	require.Error(err)
}

// mockFixture wires a service to gomock collaborators around one active listing.
type mockFixture struct {
	svc      *Service
	registry *mocks.MockAssetRegistry
	payments *mocks.MockPaymentGateway
	tx       *mocks.MockPaymentTx
	listings *repository.MemoryListingRepo
	id       uint
	asset    domain.AssetRef
}

func newMockFixture(t *testing.T) *mockFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	m := &mockFixture{
		registry: mocks.NewMockAssetRegistry(ctrl),
		payments: mocks.NewMockPaymentGateway(ctrl),
		tx:       mocks.NewMockPaymentTx(ctrl),
		listings: repository.NewMemoryListingRepo(),
		asset:    domain.AssetRef{Contract: "nft", TokenID: 1},
	}
	settings := repository.NewMemorySettingsRepo()
	require.NoError(t, settings.SaveRoyalty(ctx, &domain.RoyaltyConfig{Contract: "nft", Rate: 1000, Recipient: creator}))
	svc, err := NewService(ctx, m.listings, settings, m.registry, m.payments, logger.NewNop(), testConfig(), nil)
	require.NoError(t, err)
	m.svc = svc

	l, err := m.listings.SaveListing(ctx, &domain.Listing{
		Asset:   m.asset,
		Price:   decimal.NewFromInt(1000),
		Seller:  seller,
		ForSale: true,
	})
	require.NoError(t, err)
	m.id = l.ID
	return m
}

func (m *mockFixture) requireStillListed(t *testing.T) {
	t.Helper()
	l, err := m.svc.GetItem(context.Background(), m.id)
	require.NoError(t, err)
	require.True(t, l.ForSale)
	require.Nil(t, l.Buyer)
}

func TestBuyRollsBackWhenPayoutFails(t *testing.T) {
	m := newMockFixture(t)
	price := decimal.NewFromInt(1000)

	gomock.InOrder(
		m.payments.EXPECT().Begin(gomock.Any(), buyer, price).Return(m.tx, nil),
		m.tx.EXPECT().Pay(gomock.Any(), creator, decimal.NewFromInt(100)).Return(nil),
		m.tx.EXPECT().Pay(gomock.Any(), admin, decimal.NewFromInt(25)).Return(errors.New("ledger unavailable")),
		m.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
	)

	_, err := m.svc.BuyItem(context.Background(), buyer, m.id, price)
	require.ErrorIs(t, err, domain.ErrPaymentFailure)
	m.requireStillListed(t)
}

func TestBuyRollsBackWhenDeliveryFails(t *testing.T) {
	m := newMockFixture(t)
	price := decimal.NewFromInt(1000)

	gomock.InOrder(
		m.payments.EXPECT().Begin(gomock.Any(), buyer, price).Return(m.tx, nil),
		m.tx.EXPECT().Pay(gomock.Any(), creator, decimal.NewFromInt(100)).Return(nil),
		m.tx.EXPECT().Pay(gomock.Any(), admin, decimal.NewFromInt(25)).Return(nil),
		m.tx.EXPECT().Pay(gomock.Any(), seller, decimal.NewFromInt(875)).Return(nil),
		m.registry.EXPECT().TransferCustody(gomock.Any(), m.asset, escrow, buyer).Return(errors.New("rpc timeout")),
		m.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
	)

	_, err := m.svc.BuyItem(context.Background(), buyer, m.id, price)
	require.ErrorIs(t, err, domain.ErrRegistryFailure)
	m.requireStillListed(t)
}

func TestBuyRollsBackWhenCommitFails(t *testing.T) {
	m := newMockFixture(t)
	price := decimal.NewFromInt(1000)

	m.payments.EXPECT().Begin(gomock.Any(), buyer, price).Return(m.tx, nil)
	m.tx.EXPECT().Pay(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	gomock.InOrder(
		m.registry.EXPECT().TransferCustody(gomock.Any(), m.asset, escrow, buyer).Return(nil),
		m.tx.EXPECT().Commit(gomock.Any()).Return(errors.New("serialization failure")),
		m.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
	)

	_, err := m.svc.BuyItem(context.Background(), buyer, m.id, price)
	require.ErrorIs(t, err, domain.ErrPaymentFailure)
	m.requireStillListed(t)
}

func TestCancelKeepsListingWhenReturnFails(t *testing.T) {
	m := newMockFixture(t)
	m.registry.EXPECT().TransferCustody(gomock.Any(), m.asset, escrow, seller).Return(errors.New("rpc timeout"))

	err := m.svc.CancelSaleFromMarket(context.Background(), seller, m.id)
	require.ErrorIs(t, err, domain.ErrRegistryFailure)
	m.requireStillListed(t)
}

func TestAddItemReturnsAssetWhenSaveFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	reg := mocks.NewMockAssetRegistry(ctrl)
	asset := domain.AssetRef{Contract: "nft", TokenID: 7}

	svc, err := NewService(ctx, failingListings{repository.NewMemoryListingRepo()}, repository.NewMemorySettingsRepo(),
		reg, nil, logger.NewNop(), testConfig(), nil)
	require.NoError(t, err)

	gomock.InOrder(
		reg.EXPECT().CustodyOf(gomock.Any(), asset).Return(seller, nil),
		reg.EXPECT().IsTransferApproved(gomock.Any(), asset, escrow).Return(true, nil),
		reg.EXPECT().TransferCustody(gomock.Any(), asset, seller, escrow).Return(nil),
		reg.EXPECT().TransferCustody(gomock.Any(), asset, escrow, seller).Return(nil),
	)
	_, err = svc.AddItemToMarket(ctx, seller, asset, decimal.NewFromInt(10))
	require.Error(t, err)
}

type failingListings struct {
	*repository.MemoryListingRepo
}

func (failingListings) SaveListing(context.Context, *domain.Listing) (*domain.Listing, error) {
	return nil, errors.New("disk full")
}

type failingUpdates struct {
	*repository.MemoryListingRepo
}

func (failingUpdates) UpdateListing(context.Context, *domain.Listing) error {
	return errors.New("db down")
}

func newFailingUpdatesFixture(t *testing.T) (*Service, *registry.MemoryRegistry, *payment.MemoryBank) {
	t.Helper()
	logg := logger.NewNop()
	reg := registry.NewMemoryRegistry(escrow, logg)
	bank := payment.NewMemoryBank(logg)
	svc, err := NewService(context.Background(), failingUpdates{repository.NewMemoryListingRepo()},
		repository.NewMemorySettingsRepo(), reg, bank, logg, testConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, reg.CreateCollection("nft", creator, "MyToken", "TKN"))
	return svc, reg, bank
}

func listWith(t *testing.T, svc *Service, reg *registry.MemoryRegistry) (uint, domain.AssetRef) {
	t.Helper()
	tokenID, err := reg.Mint("nft", seller)
	require.NoError(t, err)
	asset := domain.AssetRef{Contract: "nft", TokenID: tokenID}
	require.NoError(t, reg.Approve(seller, asset, escrow))
	id, err := svc.AddItemToMarket(context.Background(), seller, asset, decimal.NewFromInt(1000))
	require.NoError(t, err)
	return id, asset
}

func TestBuyKeepsAssetInEscrowWhenRetireFails(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, reg, bank := newFailingUpdatesFixture(t)
	id, asset := listWith(t, svc, reg)
	price := decimal.NewFromInt(1000)
	require.NoError(bank.Deposit(buyer, price))

	_, err := svc.BuyItem(ctx, buyer, id, price)
	require.Error(err)

	custodian, err := reg.CustodyOf(ctx, asset)
	require.NoError(err)
	require.Equal(escrow, custodian)
	balance, err := bank.BalanceOf(ctx, buyer)
	require.NoError(err)
	require.True(balance.Equal(price))
	for _, acc := range []domain.Account{seller, admin} {
		b, err := bank.BalanceOf(ctx, acc)
		require.NoError(err)
		require.True(b.IsZero())
	}
	listing, err := svc.GetItem(ctx, id)
	require.NoError(err)
	require.True(listing.ForSale)
}

func TestCancelKeepsAssetInEscrowWhenRetireFails(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, reg, _ := newFailingUpdatesFixture(t)
	id, asset := listWith(t, svc, reg)

	require.Error(svc.CancelSaleFromMarket(ctx, seller, id))

	custodian, err := reg.CustodyOf(ctx, asset)
	require.NoError(err)
	require.Equal(escrow, custodian)
	listing, err := svc.GetItem(ctx, id)
	require.NoError(err)
	require.True(listing.ForSale)
}
