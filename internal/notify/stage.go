package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// ErrNoStages is returned by a Chain with nothing configured.
var ErrNoStages = errors.New("notify: no mail stages configured")

// Stage is one mail transport.
type Stage interface {
	Name() string
	Deliver(ctx context.Context, msg *Message) error
}

// Chain tries its stages in order until one delivers.
type Chain struct {
	stages []Stage
	log    *logger.Logger
}

// NewChain builds a chain, skipping nil stages.
func NewChain(stages ...Stage) *Chain {
	c := &Chain{log: logger.With("component", "mail_chain")}
	for _, s := range stages {
		if s != nil {
			c.stages = append(c.stages, s)
		}
	}
	return c
}

// Stages returns the stage names in order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Deliver returns the name of the stage that accepted msg, or an error
// joining every stage failure.
func (c *Chain) Deliver(ctx context.Context, msg *Message) (string, error) {
	if len(c.stages) == 0 {
		return "", ErrNoStages
	}

	var errs []error
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Deliver(ctx, msg); err != nil {
			c.log.Warn("mail stage failed", "stage", s.Name(), "to_email", msg.To, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		c.log.Info("mail delivered", "stage", s.Name(), "to_email", msg.To)
		return s.Name(), nil
	}
	return "", errors.Join(errs...)
}
