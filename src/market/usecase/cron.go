package usecase

import (
	"context"

	"github.com/MMN3003/nftmarket/src/logger"
	cron_adapter "github.com/MMN3003/nftmarket/src/market/adapter/cron"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var ReconcileEscrowCronID = uuid.MustParse("5d1c6a3e-0b7e-4f43-9a51-2f3c8e1d7a10")

// NewCronService schedules escrow reconciliation on [spec] (with seconds field).
func NewCronService(c *cron.Cron, spec string, s domain.MarketUseCase, ca cron_adapter.CronAdapter, logg *logger.Logger) error {
	_, err := c.AddFunc(spec, func() {
		handleReconcileEscrow(context.Background(), s, ca, logg)
	})
	return err
}

func handleReconcileEscrow(ctx context.Context, s domain.MarketUseCase, ca cron_adapter.CronAdapter, logg *logger.Logger) {
	if err := ca.CreateCron(ctx, ReconcileEscrowCronID); err != nil {
		logg.Debugf("escrow reconciliation skipped: %v", err)
		return
	}
	defer func() {
		if err := ca.DeleteCron(ctx, ReconcileEscrowCronID); err != nil {
			logg.Errorf("release reconciliation lease: %v", err)
		}
	}()

	if _, err := s.ReconcileEscrow(ctx); err != nil {
		logg.Errorf("escrow reconciliation failed: %v", err)
	}
}
