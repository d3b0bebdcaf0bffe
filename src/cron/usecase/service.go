package usecase

import (
	"context"
	"time"

	"github.com/MMN3003/nftmarket/src/cron/domain"
	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/google/uuid"
)

var _ domain.CronUseCase = (*Service)(nil)

type Service struct {
	cronRepo domain.CronRepository
	logger   *logger.Logger
	leaseTTL time.Duration
	now      func() time.Time
}

// NewService hands out job leases that expire after [leaseTTL], so a process
// that dies mid-job does not block the schedule forever.
func NewService(cronRepo domain.CronRepository, logg *logger.Logger, leaseTTL time.Duration) *Service {
	return &Service{
		cronRepo: cronRepo,
		logger:   logg,
		leaseTTL: leaseTTL,
		now:      time.Now,
	}
}

func (s *Service) CreateCron(ctx context.Context, id uuid.UUID) error {
	_, err := s.cronRepo.SaveCron(ctx, &domain.Cron{ID: id, ExpiresAt: s.now().Add(s.leaseTTL)})
	if err != nil {
		return err
	}
	s.logger.Debugf("cron lease %s acquired", id)
	return nil
}

func (s *Service) DeleteCron(ctx context.Context, id uuid.UUID) error {
	return s.cronRepo.DeleteCron(ctx, id)
}
