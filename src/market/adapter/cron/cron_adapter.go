package cron

import (
	"context"

	"github.com/MMN3003/nftmarket/src/cron/domain"
	"github.com/google/uuid"
)

type CronAdapter interface {
	CreateCron(ctx context.Context, id uuid.UUID) error
	DeleteCron(ctx context.Context, id uuid.UUID) error
}

var _ CronAdapter = (*CronPort)(nil)

// NewCronPort exposes the job lease module to the market module.
func NewCronPort(cronService domain.CronUseCase) CronAdapter {
	return &CronPort{cronService: cronService}
}

type CronPort struct {
	cronService domain.CronUseCase
}

func (m *CronPort) CreateCron(ctx context.Context, id uuid.UUID) error {
	return m.cronService.CreateCron(ctx, id)
}

func (m *CronPort) DeleteCron(ctx context.Context, id uuid.UUID) error {
	return m.cronService.DeleteCron(ctx, id)
}
