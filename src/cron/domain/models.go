package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCronLocked = errors.New("cron lease is held")

// Cron is a lease on a scheduled job. While it exists and has not expired no
// other process runs the job.
type Cron struct {
	ID        uuid.UUID
	ExpiresAt time.Time
}

func (c *Cron) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }
