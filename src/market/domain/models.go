package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account identifies a party: seller, buyer, collection owner, the marketplace
// admin or the escrow holder.
type Account string

// BasisPoints is the fixed-point unit of every rate: 10000 bp == 100%.
type BasisPoints uint32

const MaxBasisPoints BasisPoints = 10000

// Valid reports whether the rate is within 0..10000.
func (b BasisPoints) Valid() bool { return b <= MaxBasisPoints }

// AssetRef points at one asset inside a collection of the asset registry.
type AssetRef struct {
	Contract string `json:"contract"`
	TokenID  uint64 `json:"token_id"`
}

func (a AssetRef) String() string {
	return fmt.Sprintf("%s/%d", a.Contract, a.TokenID)
}

// Listing is one asset offered for sale at a fixed price.
// Once ForSale turns false it never turns back.
type Listing struct {
	ID        uint            `json:"id"`
	Asset     AssetRef        `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	Seller    Account         `json:"seller"`
	ForSale   bool            `json:"for_sale"`
	Buyer     *Account        `json:"buyer,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Sold reports whether the listing was retired by a purchase rather than a cancel.
func (l *Listing) Sold() bool { return !l.ForSale && l.Buyer != nil }

// RoyaltyConfig is the per-collection royalty rate and its recipient.
type RoyaltyConfig struct {
	Contract  string      `json:"contract"`
	Rate      BasisPoints `json:"rate"`
	Recipient Account     `json:"recipient"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Split is how a sale price is divided. Royalty + Fee + SellerProceeds == Price.
type Split struct {
	Price          decimal.Decimal `json:"price"`
	Royalty        decimal.Decimal `json:"royalty"`
	Fee            decimal.Decimal `json:"fee"`
	SellerProceeds decimal.Decimal `json:"seller_proceeds"`
}

// SaleReceipt records a completed purchase.
type SaleReceipt struct {
	ID               uuid.UUID `json:"id"`
	ListingID        uint      `json:"listing_id"`
	Asset            AssetRef  `json:"asset"`
	Seller           Account   `json:"seller"`
	Buyer            Account   `json:"buyer"`
	FeeRecipient     Account   `json:"fee_recipient"`
	RoyaltyRecipient *Account  `json:"royalty_recipient,omitempty"`
	Split            Split     `json:"split"`
	SoldAt           time.Time `json:"sold_at"`
}

// Discrepancy is an active listing whose asset is not held by escrow.
type Discrepancy struct {
	ListingID uint     `json:"listing_id"`
	Asset     AssetRef `json:"asset"`
	Custodian Account  `json:"custodian"`
}
