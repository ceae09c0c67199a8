package reservations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

func setupReservationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  vehicle_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  deposit_amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  notes TEXT,
  receipt_seq INTEGER NOT NULL,
  receipt_year INTEGER NOT NULL,
  cancel_reason TEXT,
  cancelled_at DATETIME,
  cancelled_by TEXT,
  converted_sale_id TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func insertReservation(t *testing.T, db *gorm.DB, vehicleID uuid.UUID, status enums.ReservationStatus, seq, year int, createdAt time.Time) *models.Reservation {
	t.Helper()
	reservation := &models.Reservation{
		ID:            uuid.New(),
		VehicleID:     vehicleID,
		CustomerID:    uuid.New(),
		Status:        status,
		DepositAmount: decimal.NewFromInt(1_000_000),
		PaymentMethod: enums.PaymentMethodEfectivo,
		ReceiptSeq:    seq,
		ReceiptYear:   year,
		CreatedBy:     uuid.New(),
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Create(reservation).Error)
	return reservation
}

func TestHasActiveHold(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	heldVehicle := uuid.New()
	freeVehicle := uuid.New()
	insertReservation(t, db, heldVehicle, enums.ReservationStatusActive, 1, 2026, time.Now())
	insertReservation(t, db, freeVehicle, enums.ReservationStatusCancelled, 2, 2026, time.Now())

	held, err := repo.HasActiveHold(ctx, nil, heldVehicle)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = repo.HasActiveHold(ctx, nil, freeVehicle)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestFindActiveByVehicle(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vehicleID := uuid.New()
	insertReservation(t, db, vehicleID, enums.ReservationStatusCancelled, 1, 2026, time.Now().Add(-time.Hour))
	active := insertReservation(t, db, vehicleID, enums.ReservationStatusActive, 2, 2026, time.Now())

	found, err := repo.FindActiveByVehicle(ctx, vehicleID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveByVehicle(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	reservation := insertReservation(t, db, uuid.New(), enums.ReservationStatusActive, 1, 2026, time.Now())

	rows, err := repo.UpdateStatus(ctx, reservation.ID, enums.ReservationStatusActive, map[string]any{
		"status": enums.ReservationStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Already resolved, so a second resolution must not apply.
	rows, err = repo.UpdateStatus(ctx, reservation.ID, enums.ReservationStatusActive, map[string]any{
		"status": enums.ReservationStatusConverted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	loaded, err := repo.FindReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCancelled, loaded.Status)
}

func TestNextReceiptSeqPerYear(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seq, err := repo.NextReceiptSeq(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	insertReservation(t, db, uuid.New(), enums.ReservationStatusActive, 7, 2026, time.Now())
	insertReservation(t, db, uuid.New(), enums.ReservationStatusCancelled, 3, 2026, time.Now())

	seq, err = repo.NextReceiptSeq(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 8, seq)

	// Each year numbers independently.
	seq, err = repo.NextReceiptSeq(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestListReservationsFiltersByStatus(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	insertReservation(t, db, uuid.New(), enums.ReservationStatusActive, 1, 2026, base)
	cancelled := insertReservation(t, db, uuid.New(), enums.ReservationStatusCancelled, 2, 2026, base.Add(time.Minute))

	status := enums.ReservationStatusCancelled
	list, err := repo.ListReservations(ctx, pagination.Params{Limit: 10}, ReservationFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Reservations, 1)
	assert.Equal(t, cancelled.ID, list.Reservations[0].ID)
}

func TestListReservationsPaginatesWithCursor(t *testing.T) {
	db := setupReservationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 3; i++ {
		insertReservation(t, db, uuid.New(), enums.ReservationStatusActive, i+1, 2026, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.ListReservations(ctx, pagination.Params{Limit: 2}, ReservationFilters{})
	require.NoError(t, err)
	require.Len(t, first.Reservations, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListReservations(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ReservationFilters{})
	require.NoError(t, err)
	require.Len(t, second.Reservations, 1)
	assert.Empty(t, second.NextCursor)

	seen := make(map[uuid.UUID]bool)
	for _, row := range append(first.Reservations, second.Reservations...) {
		assert.False(t, seen[row.ID], "reservation repeated across pages")
		seen[row.ID] = true
	}
}
