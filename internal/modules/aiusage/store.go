package aiusage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store handles generation_usage persistence.
type Store struct {
	db db
}

// NewStore returns a Store backed by a pool or a transaction.
func NewStore(db db) *Store {
	return &Store{db: db}
}

// Consume atomically checks the monthly allowance and deducts one generation.
// It resets the counter to limit when last_reset_month is behind month.
// Returns ErrQuotaExhausted when 0 rows are updated (allowance used up or user absent).
func (s *Store) Consume(ctx context.Context, uid, month string, limit int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE generation_usage SET
			generations_remaining = CASE WHEN last_reset_month <> @month THEN @limit - 1 ELSE generations_remaining - 1 END,
			last_reset_month = @month
		WHERE uid = @uid AND (last_reset_month < @month OR generations_remaining > 0)
	`, pgx.NamedArgs{"month": month, "limit": limit, "uid": uid})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// EnsureUser inserts a usage row for uid with the full allowance.
// Existing rows are left untouched (ON CONFLICT DO NOTHING).
func (s *Store) EnsureUser(ctx context.Context, uid, month string, limit int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO generation_usage (uid, generations_remaining, last_reset_month)
		VALUES (@uid, @limit, @month)
		ON CONFLICT (uid) DO NOTHING
	`, pgx.NamedArgs{"uid": uid, "limit": limit, "month": month})
	return err
}

// Refund gives back one generation consumed in month, never exceeding limit.
func (s *Store) Refund(ctx context.Context, uid, month string, limit int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE generation_usage
		SET generations_remaining = LEAST(generations_remaining + 1, @limit)
		WHERE uid = @uid AND last_reset_month = @month
	`, pgx.NamedArgs{"uid": uid, "month": month, "limit": limit})
	return err
}

// Remaining reports the stored allowance for uid. found is false for users with no row.
func (s *Store) Remaining(ctx context.Context, uid string) (remaining int, month string, found bool, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT generations_remaining, last_reset_month FROM generation_usage WHERE uid = @uid`,
		pgx.NamedArgs{"uid": uid},
	).Scan(&remaining, &month)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return remaining, month, true, nil
}
