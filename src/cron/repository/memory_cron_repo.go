package repository

import (
	"context"
	"sync"
	"time"

	"github.com/MMN3003/nftmarket/src/cron/domain"
	"github.com/google/uuid"
)

var _ domain.CronRepository = (*MemoryCronRepo)(nil)

// MemoryCronRepo keeps leases in process. Enough for a single replica.
type MemoryCronRepo struct {
	mu     sync.Mutex
	leases map[uuid.UUID]domain.Cron
	now    func() time.Time
}

func NewMemoryCronRepo() *MemoryCronRepo {
	return &MemoryCronRepo{
		leases: make(map[uuid.UUID]domain.Cron),
		now:    time.Now,
	}
}

func (r *MemoryCronRepo) SaveCron(_ context.Context, c *domain.Cron) (*domain.Cron, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.leases[c.ID]; ok && !held.Expired(r.now()) {
		return nil, domain.ErrCronLocked
	}
	r.leases[c.ID] = *c
	saved := *c
	return &saved, nil
}

func (r *MemoryCronRepo) DeleteCron(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leases, id)
	return nil
}
