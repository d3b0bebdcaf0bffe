package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ domain.SettingsRepository = (*SettingsRepo)(nil)

const serviceFeeKey = "service_fee"

// ---------- SETTINGS ----------

type MarketSetting struct {
	Key       string `gorm:"primarykey"`
	Value     uint32 `gorm:"not null"`
	UpdatedAt time.Time
}

type Royalty struct {
	Contract  string `gorm:"primarykey"`
	Rate      uint32 `gorm:"not null;index"`
	Recipient string `gorm:"not null"`
	UpdatedAt time.Time
}

// ---------- REPO ----------

type SettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, log *logger.Logger) (*SettingsRepo, error) {
	if err := db.AutoMigrate(&MarketSetting{}, &Royalty{}); err != nil {
		return nil, err
	}
	return &SettingsRepo{db: db, log: log}, nil
}

// ---------- SERVICE FEE ----------

func (r *SettingsRepo) GetServiceFee(ctx context.Context) (*domain.BasisPoints, error) {
	var s MarketSetting
	if err := r.db.WithContext(ctx).First(&s, "key = ?", serviceFeeKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rate := domain.BasisPoints(s.Value)
	return &rate, nil
}

func (r *SettingsRepo) SetServiceFee(ctx context.Context, rate domain.BasisPoints) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&MarketSetting{Key: serviceFeeKey, Value: uint32(rate)}).Error
}

// ---------- ROYALTIES ----------

func (r *SettingsRepo) GetRoyalty(ctx context.Context, contract string) (*domain.RoyaltyConfig, error) {
	var m Royalty
	if err := r.db.WithContext(ctx).First(&m, "contract = ?", contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomainRoyalty(&m), nil
}

func (r *SettingsRepo) SaveRoyalty(ctx context.Context, c *domain.RoyaltyConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "recipient", "updated_at"}),
	}).Create(&Royalty{
		Contract:  c.Contract,
		Rate:      uint32(c.Rate),
		Recipient: string(c.Recipient),
		UpdatedAt: c.UpdatedAt,
	}).Error
}

func (r *SettingsRepo) MaxRoyaltyRate(ctx context.Context) (domain.BasisPoints, error) {
	var max uint32
	if err := r.db.WithContext(ctx).Model(&Royalty{}).
		Select("COALESCE(MAX(rate), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return domain.BasisPoints(max), nil
}

// ---------- HELPERS ----------

func (r *SettingsRepo) toDomainRoyalty(m *Royalty) *domain.RoyaltyConfig {
	return &domain.RoyaltyConfig{
		Contract:  m.Contract,
		Rate:      domain.BasisPoints(m.Rate),
		Recipient: domain.Account(m.Recipient),
		UpdatedAt: m.UpdatedAt,
	}
}
