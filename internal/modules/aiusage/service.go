package aiusage

import (
	"context"
	"errors"
	"time"
)

// Service orchestrates the monthly generation allowance.
// A limit of zero or less disables the quota entirely.
type Service struct {
	store *Store
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a Service backed by the given Store.
func NewService(store *Store, monthlyLimit int, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, limit: monthlyLimit, loc: loc, now: time.Now}
}

func (s *Service) Enabled() bool {
	return s != nil && s.limit > 0
}

func (s *Service) month() string {
	return s.now().In(s.loc).Format(monthLayout)
}

// Consume deducts one generation from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the generation is immediately consumed.
// Returns ErrQuotaExhausted when the allowance for the current month is used up.
func (s *Service) Consume(ctx context.Context, uid string) error {
	if !s.Enabled() {
		return nil
	}
	month := s.month()
	err := s.store.Consume(ctx, uid, month, s.limit)
	if !errors.Is(err, ErrQuotaExhausted) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid, month, s.limit); initErr != nil {
		return initErr
	}
	return s.store.Consume(ctx, uid, month, s.limit)
}

// Refund returns a generation consumed by a call that produced nothing.
func (s *Service) Refund(ctx context.Context, uid string) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.Refund(ctx, uid, s.month(), s.limit)
}

// Remaining is the number of generations uid can still request this month.
func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	if !s.Enabled() {
		return -1, nil
	}
	remaining, month, found, err := s.store.Remaining(ctx, uid)
	if err != nil {
		return 0, err
	}
	if !found || month < s.month() {
		return s.limit, nil
	}
	return remaining, nil
}
