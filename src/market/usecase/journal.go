package usecase

import (
	"context"

	"github.com/MMN3003/nftmarket/src/logger"
)

type undoStep struct {
	name string
	fn   func(context.Context) error
}

// journal records compensating actions of a multi-step transition and replays
// them newest first when a later step fails.
type journal struct {
	steps  []undoStep
	logger *logger.Logger
}

func newJournal(l *logger.Logger) *journal {
	return &journal{logger: l}
}

func (j *journal) push(name string, fn func(context.Context) error) {
	j.steps = append(j.steps, undoStep{name: name, fn: fn})
}

// rollback runs every step even if one fails. A failed compensation leaves
// state the reconciler will report, so it is logged rather than returned.
func (j *journal) rollback(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(j.steps) - 1; i >= 0; i-- {
		step := j.steps[i]
		log := j.logger.WithField("step", step.name)
		if err := step.fn(ctx); err != nil {
			log.Errorf("rollback step failed: %v", err)
			continue
		}
		log.Debugf("rolled back")
	}
	j.steps = nil
}
