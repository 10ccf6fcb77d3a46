// README: Itinerary store backed by PostgreSQL.
package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"itinera/internal/types"
)

// db is satisfied by *pgxpool.Pool and pgx.Tx, so tests can run inside a rolled-back transaction.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db db
}

func NewStore(db db) *Store {
	return &Store{db: db}
}

const recordColumns = `id, user_id, destination, start_date, end_date, num_travelers,
	budget, interests, additional_info, content, place, created_at`

// Create inserts rec as a single row. CreatedAt is assigned by the database.
// A zero ID is replaced with a fresh one. Creating the same ID again returns the stored
// row unchanged, so a retry after an unacknowledged commit does not duplicate it.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return Record{}, fmt.Errorf("itinerary.Store.Create: %w: encode content: %w", ErrStorage, err)
	}
	var place any
	if rec.Place != nil {
		b, err := json.Marshal(rec.Place)
		if err != nil {
			return Record{}, fmt.Errorf("itinerary.Store.Create: %w: encode place: %w", ErrStorage, err)
		}
		place = string(b)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO itineraries (
			id, user_id, destination, start_date, end_date, num_travelers,
			budget, interests, additional_info, content, place
		) VALUES (
			@id, @user_id, @destination, @start_date, @end_date, @num_travelers,
			@budget, @interests, @additional_info, @content, @place
		)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+recordColumns,
		pgx.NamedArgs{
			"id":              rec.ID,
			"user_id":         rec.OwnerID,
			"destination":     rec.Destination,
			"start_date":      rec.StartDate.Time(),
			"end_date":        rec.EndDate.Time(),
			"num_travelers":   rec.NumTravelers,
			"budget":          rec.Budget,
			"interests":       rec.Interests,
			"additional_info": rec.AdditionalInfo,
			"content":         string(content),
			"place":           place,
		},
	)
	created, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already written by an earlier attempt.
		existing, gerr := s.GetByOwner(ctx, rec.OwnerID, rec.ID)
		if gerr != nil {
			return Record{}, fmt.Errorf("itinerary.Store.Create: %w: id %s taken: %w", ErrStorage, rec.ID, gerr)
		}
		return existing, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("itinerary.Store.Create: %w: %w", ErrStorage, err)
	}
	return created, nil
}

// GetByOwner returns the itinerary only when it belongs to owner.
func (s *Store) GetByOwner(ctx context.Context, owner string, id uuid.UUID) (Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM itineraries
		WHERE id = @id AND user_id = @user_id`,
		pgx.NamedArgs{"id": id, "user_id": owner},
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("itinerary.Store.GetByOwner: %w", err)
	}
	return rec, nil
}

// ListByOwner returns one page of owner's itineraries, newest first, and the owner's total.
func (s *Store) ListByOwner(ctx context.Context, owner string, page Page) ([]Record, int, error) {
	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM itineraries WHERE user_id = @user_id`,
		pgx.NamedArgs{"user_id": owner},
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("itinerary.Store.ListByOwner: count: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+recordColumns+`
		FROM itineraries
		WHERE user_id = @user_id
		ORDER BY created_at DESC, id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"user_id": owner, "limit": page.Limit, "offset": page.Offset()},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("itinerary.Store.ListByOwner: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, page.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("itinerary.Store.ListByOwner: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("itinerary.Store.ListByOwner: rows: %w", err)
	}
	return records, total, nil
}

// IsConstraintViolation reports whether err came from a Postgres integrity constraint (class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec              Record
		id               pgtype.UUID
		start, end       pgtype.Date
		additional       pgtype.Text
		content, placeJS []byte
	)
	err := s.Scan(
		&id, &rec.OwnerID, &rec.Destination, &start, &end, &rec.NumTravelers,
		&rec.Budget, &rec.Interests, &additional, &content, &placeJS, &rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.ID = uuid.UUID(id.Bytes)
	rec.StartDate = types.DateOf(start.Time)
	rec.EndDate = types.DateOf(end.Time)
	rec.AdditionalInfo = additional.String
	if err := json.Unmarshal(content, &rec.Content); err != nil {
		return Record{}, fmt.Errorf("decode content: %w", err)
	}
	if len(placeJS) > 0 {
		var p Place
		if err := json.Unmarshal(placeJS, &p); err != nil {
			return Record{}, fmt.Errorf("decode place: %w", err)
		}
		rec.Place = &p
	}
	return rec, nil
}
