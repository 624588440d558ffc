package admin

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadfunnel/internal/domain"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Service implements the back-office operations. It is safe for concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an admin service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns leads matching f. An empty funnel defaults to revolving, the
// funnel the back office was built for.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.Lead, int, error) {
	if f.Funnel == "" {
		f.Funnel = domain.FunnelRevolving
	}
	if !f.Funnel.Valid() {
		return nil, 0, ErrUnknownFunnel
	}
	if f.Stage != "" && !f.Stage.Valid() {
		return nil, 0, ErrInvalidStage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

// UpdateStage moves a lead along the sales pipeline.
func (s *Service) UpdateStage(ctx context.Context, funnel domain.Funnel, id int64, stage domain.Stage) error {
	if !funnel.Valid() {
		return ErrUnknownFunnel
	}
	if !stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.UpdateStage(ctx, funnel, id, stage)
}

// Stats summarises every funnel.
func (s *Service) Stats(ctx context.Context) ([]Stats, error) {
	today := s.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var out []Stats
	for _, f := range []domain.Funnel{domain.FunnelROI, domain.FunnelRevolving} {
		st, err := s.repo.Stats(ctx, f, today)
		if err != nil {
			return nil, fmt.Errorf("stats %s: %w", f, err)
		}
		out = append(out, *st)
	}
	return out, nil
}

// Report resolves a report token. Malformed tokens are treated as unknown
// without touching the store.
func (s *Service) Report(ctx context.Context, token string) (*domain.Lead, error) {
	if !validToken(token) {
		return nil, ErrNotFound
	}
	return s.repo.GetByToken(ctx, token)
}

func validToken(t string) bool {
	if len(t) != 64 {
		return false
	}
	_, err := hex.DecodeString(t)
	return err == nil
}
