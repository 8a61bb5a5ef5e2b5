// Package saga runs an ordered list of steps and undoes the completed ones in
// reverse order when a later step fails.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is one forward action with an optional compensation. Compensate runs
// only when Action succeeded and a later step failed.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

type Saga struct {
	name  string
	steps []Step
	log   *zap.Logger
}

func New(name string, log *zap.Logger, steps ...Step) *Saga {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saga{name: name, steps: steps, log: log.With(zap.String("saga", name))}
}

// Run executes the steps in order. On failure of step k it compensates steps
// k-1..1 and returns the step's own error. Compensation errors are logged and
// never returned. Compensations ignore cancellation of ctx, so an abandoned
// attempt still cleans up.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(ctx, i)
			return err
		}
		if err := step.Action(ctx); err != nil {
			s.log.Info("step failed, rolling back",
				zap.String("step", step.Name),
				zap.Error(err),
			)
			s.compensate(ctx, i)
			return err
		}
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, completed int) {
	cctx := context.WithoutCancel(ctx)
	for i := completed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := runCompensation(cctx, step); err != nil {
			s.log.Warn("compensation failed",
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}
}

func runCompensation(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()
	return step.Compensate(ctx)
}
