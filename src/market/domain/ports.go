package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks . AssetRegistry,PaymentGateway,PaymentTx

type MarketUseCase interface {
	AddItemToMarket(ctx context.Context, caller Account, asset AssetRef, price decimal.Decimal) (uint, error)
	GetItem(ctx context.Context, id uint) (*Listing, error)
	ListActiveItems(ctx context.Context) ([]*Listing, error)
	BuyItem(ctx context.Context, buyer Account, id uint, payment decimal.Decimal) (*SaleReceipt, error)
	CancelSaleFromMarket(ctx context.Context, caller Account, id uint) error

	SetServiceFee(ctx context.Context, caller Account, rate BasisPoints) error
	GetServiceFee(ctx context.Context) BasisPoints
	SetRoyalties(ctx context.Context, caller Account, contract string, rate BasisPoints) error
	GetRoyalties(ctx context.Context, contract string) (BasisPoints, error)
	GetRoyaltyConfig(ctx context.Context, contract string) (*RoyaltyConfig, error)

	ReconcileEscrow(ctx context.Context) ([]Discrepancy, error)
}

// ListingRepository persistence port. Lookups return nil, nil when nothing matches.
type ListingRepository interface {
	// SaveListing assigns the next unused listing id.
	SaveListing(ctx context.Context, l *Listing) (*Listing, error)
	GetListingByID(ctx context.Context, id uint) (*Listing, error)
	UpdateListing(ctx context.Context, l *Listing) error
	GetActiveListingByAsset(ctx context.Context, asset AssetRef) (*Listing, error)
	GetActiveListings(ctx context.Context) ([]*Listing, error)
}

// SettingsRepository persistence port for the service fee and royalty table.
type SettingsRepository interface {
	// GetServiceFee returns nil when no fee was ever stored.
	GetServiceFee(ctx context.Context) (*BasisPoints, error)
	SetServiceFee(ctx context.Context, rate BasisPoints) error
	GetRoyalty(ctx context.Context, contract string) (*RoyaltyConfig, error)
	SaveRoyalty(ctx context.Context, c *RoyaltyConfig) error
	// MaxRoyaltyRate is the highest configured royalty, 0 when none.
	MaxRoyaltyRate(ctx context.Context) (BasisPoints, error)
}

// AssetRegistry is the external collaborator owning asset custody.
// Implementations act on behalf of the marketplace escrow account.
type AssetRegistry interface {
	CustodyOf(ctx context.Context, asset AssetRef) (Account, error)
	IsTransferApproved(ctx context.Context, asset AssetRef, spender Account) (bool, error)
	// TransferCustody fails if [from] does not currently hold the asset.
	TransferCustody(ctx context.Context, asset AssetRef, from, to Account) error
	// CollectionOwner is the account allowed to configure royalties for [contract].
	CollectionOwner(ctx context.Context, contract string) (Account, error)
}

// PaymentGateway moves funds for a purchase.
type PaymentGateway interface {
	// Begin holds [amount] of the payer's funds for a transaction.
	Begin(ctx context.Context, payer Account, amount decimal.Decimal) (PaymentTx, error)
	BalanceOf(ctx context.Context, account Account) (decimal.Decimal, error)
}

// PaymentTx disburses held funds. Nothing is visible to other parties until
// Commit; Rollback returns the held funds to the payer. Not safe for concurrent use.
type PaymentTx interface {
	// Pay fails if [amount] exceeds what is still held.
	Pay(ctx context.Context, recipient Account, amount decimal.Decimal) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
