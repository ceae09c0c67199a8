package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

// Repository defines persistence operations for reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error)
	FindReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Reservation, error)
	// HasActiveHold takes an explicit transaction so other domains can call
	// it mid-workflow without binding to this package's repository type.
	HasActiveHold(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) (bool, error)
	// UpdateStatus applies updates only while the reservation still holds
	// the expected status. Zero rows means someone else resolved it first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.ReservationStatus, updates map[string]any) (int64, error)
	NextReceiptSeq(ctx context.Context, year int) (int, error)
	ListReservations(ctx context.Context, params pagination.Params, filters ReservationFilters) (*ReservationList, error)
}
