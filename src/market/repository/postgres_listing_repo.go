package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var _ domain.ListingRepository = (*ListingRepo)(nil)

// ---------- LISTINGS ----------
// ID is a plain autoincrement key; listings are never deleted so ids are
// never reused.
type Listing struct {
	ID        uint            `gorm:"primarykey"`
	Contract  string          `gorm:"not null;index:idx_listing_asset"`
	TokenID   uint64          `gorm:"not null;index:idx_listing_asset"`
	Price     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Seller    string          `gorm:"not null;index"`
	ForSale   bool            `gorm:"not null;default:true;index"`
	Buyer     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ---------- REPO ----------

type ListingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewListingRepo(db *gorm.DB, log *logger.Logger) (*ListingRepo, error) {
	if err := db.AutoMigrate(&Listing{}); err != nil {
		return nil, err
	}
	return &ListingRepo{db: db, log: log}, nil
}

// ---------- LISTING CRUD ----------

func (r *ListingRepo) SaveListing(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	model := r.fromDomainListing(l)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return r.toDomainListing(&model), nil
}

func (r *ListingRepo) GetListingByID(ctx context.Context, id uint) (*domain.Listing, error) {
	var m Listing
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomainListing(&m), nil
}

// UpdateListing writes every mutable column; Select("*") keeps false and nil
// values from being skipped.
func (r *ListingRepo) UpdateListing(ctx context.Context, l *domain.Listing) error {
	model := r.fromDomainListing(l)
	res := r.db.WithContext(ctx).Model(&Listing{}).
		Where("id = ?", l.ID).
		Select("price", "seller", "for_sale", "buyer", "updated_at").
		Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Indexed fetch: by asset
func (r *ListingRepo) GetActiveListingByAsset(ctx context.Context, asset domain.AssetRef) (*domain.Listing, error) {
	var m Listing
	if err := r.db.WithContext(ctx).
		Where("contract = ? AND token_id = ? AND for_sale = ?", asset.Contract, asset.TokenID, true).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomainListing(&m), nil
}

func (r *ListingRepo) GetActiveListings(ctx context.Context) ([]*domain.Listing, error) {
	var ms []Listing
	if err := r.db.WithContext(ctx).
		Where("for_sale = ?", true).
		Order("id").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toDomainListings(ms), nil
}

// ---------- HELPERS ----------

func (r *ListingRepo) toDomainListings(ms []Listing) []*domain.Listing {
	out := make([]*domain.Listing, 0, len(ms))
	for i := range ms {
		out = append(out, r.toDomainListing(&ms[i]))
	}
	return out
}

func (r *ListingRepo) toDomainListing(m *Listing) *domain.Listing {
	l := &domain.Listing{
		ID:        m.ID,
		Asset:     domain.AssetRef{Contract: m.Contract, TokenID: m.TokenID},
		Price:     m.Price,
		Seller:    domain.Account(m.Seller),
		ForSale:   m.ForSale,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Buyer != nil {
		buyer := domain.Account(*m.Buyer)
		l.Buyer = &buyer
	}
	return l
}

func (r *ListingRepo) fromDomainListing(l *domain.Listing) Listing {
	m := Listing{
		ID:        l.ID,
		Contract:  l.Asset.Contract,
		TokenID:   l.Asset.TokenID,
		Price:     l.Price,
		Seller:    string(l.Seller),
		ForSale:   l.ForSale,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Buyer != nil {
		buyer := string(*l.Buyer)
		m.Buyer = &buyer
	}
	return m
}
