package itinerary_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinera/internal/modules/itinerary"
	"itinera/internal/testutil"
	"itinera/internal/types"
)

func newTestStore(t *testing.T) *itinerary.Store {
	t.Helper()
	return itinerary.NewStore(testutil.NewTx(t))
}

func sampleRecord(owner string) itinerary.Record {
	return itinerary.Record{
		OwnerID:      owner,
		Destination:  "Paris, France",
		StartDate:    types.Date{Year: 2025, Month: time.June, Day: 1},
		EndDate:      types.Date{Year: 2025, Month: time.June, Day: 5},
		NumTravelers: 2,
		Budget:       "Mid-range ($1000-$3000)",
		Interests:    []string{"Culture & History", "Food & Dining"},
		Content: itinerary.Content{
			GeneratedText: "Day 1: Louvre",
			GeneratedAt:   time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC),
			PromptUsed:    "You are an expert travel planner.",
			Model:         "gemini-2.0-flash",
			UserEmail:     owner + "@example.com",
			UserName:      owner,
		},
	}
}

func TestStoreCreateAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, "Paris, France", rec.Destination)
	assert.Equal(t, types.Date{Year: 2025, Month: time.June, Day: 1}, rec.StartDate)
	assert.Equal(t, types.Date{Year: 2025, Month: time.June, Day: 5}, rec.EndDate)
	assert.Equal(t, []string{"Culture & History", "Food & Dining"}, rec.Interests)
	assert.Equal(t, "Day 1: Louvre", rec.Content.GeneratedText)
	assert.Equal(t, "alice@example.com", rec.Content.UserEmail)
	assert.True(t, rec.Content.GeneratedAt.Equal(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)))
	assert.Nil(t, rec.Place)
}

func TestStoreCreateKeepsPlace(t *testing.T) {
	s := newTestStore(t)
	in := sampleRecord("alice")
	in.Place = &itinerary.Place{FormattedAddress: "Paris, France", PlaceID: "p1", Lat: 48.85, Lng: 2.35}

	rec, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, rec.Place)
	assert.Equal(t, *in.Place, *rec.Place)
}

func TestStoreCreateSameIDWritesOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleRecord("alice")
	in.ID = uuid.New()
	first, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, first.ID)

	again, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, first.CreatedAt.Equal(again.CreatedAt))

	_, total, err := s.ListByOwner(ctx, "alice", itinerary.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestStoreCreateForeignIDIsStorageError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleRecord("alice")
	in.ID = uuid.New()
	_, err := s.Create(ctx, in)
	require.NoError(t, err)

	other := sampleRecord("bob")
	other.ID = in.ID
	_, err = s.Create(ctx, other)
	assert.ErrorIs(t, err, itinerary.ErrStorage)
}

func TestStoreIdenticalRequestsYieldDistinctRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)
	b, err := s.Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStoreGetByOwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, sampleRecord("alice"))
	require.NoError(t, err)

	got, err := s.GetByOwner(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = s.GetByOwner(ctx, "bob", rec.ID)
	require.ErrorIs(t, err, itinerary.ErrNotFound)

	_, err = s.GetByOwner(ctx, "alice", uuid.New())
	require.ErrorIs(t, err, itinerary.ErrNotFound)
}

func TestStoreListByOwnerNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, dest := range []string{"Paris", "Rome", "Lisbon"} {
		in := sampleRecord("alice")
		in.Destination = dest
		rec, err := s.Create(ctx, in)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	_, err := s.Create(ctx, sampleRecord("bob"))
	require.NoError(t, err)

	records, total, err := s.ListByOwner(ctx, "alice", itinerary.NewPage(1, 20))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "alice", r.OwnerID)
	}
	// Rows inserted in one transaction share created_at, so the id tiebreak decides.
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		assert.False(t, prev.CreatedAt.Before(cur.CreatedAt))
	}

	page2, total, err := s.ListByOwner(ctx, "alice", itinerary.NewPage(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page2, 1)

	none, total, err := s.ListByOwner(ctx, "carol", itinerary.NewPage(1, 20))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, none)
}

func TestStoreCreateConstraintViolation(t *testing.T) {
	s := newTestStore(t)
	in := sampleRecord("alice")
	in.EndDate = in.StartDate

	_, err := s.Create(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, itinerary.ErrStorage)
	assert.True(t, itinerary.IsConstraintViolation(err))
}
