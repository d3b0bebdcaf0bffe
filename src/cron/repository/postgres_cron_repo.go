package repository

import (
	"context"
	"time"

	"github.com/MMN3003/nftmarket/src/cron/domain"
	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ domain.CronRepository = (*CronRepo)(nil)

// Cron is one lease row; its primary key makes a second holder fail.
type Cron struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// ---------- REPO ----------

type CronRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCronRepo(db *gorm.DB, log *logger.Logger) (*CronRepo, error) {
	if err := db.AutoMigrate(&Cron{}); err != nil {
		return nil, err
	}
	return &CronRepo{db: db, log: log}, nil
}

// ---------- LEASES ----------

func (r *CronRepo) SaveCron(ctx context.Context, c *domain.Cron) (*domain.Cron, error) {
	model := Cron{ID: c.ID, ExpiresAt: c.ExpiresAt}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// drop a lease left behind by a holder that never released it
		if err := tx.Where("id = ? AND expires_at <= ?", c.ID, time.Now()).
			Delete(&Cron{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrCronLocked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.toDomainCron(&model), nil
}

func (r *CronRepo) DeleteCron(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Cron{}, "id = ?", id).Error
}

// ---------- HELPERS ----------

func (r *CronRepo) toDomainCron(c *Cron) *domain.Cron {
	return &domain.Cron{
		ID:        c.ID,
		ExpiresAt: c.ExpiresAt,
	}
}
