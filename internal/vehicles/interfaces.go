package vehicles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

// Repository defines persistence operations for vehicles and their stage
// history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	// UpdateStage moves a vehicle from one stage to another with a single
	// conditional statement. Extra column updates ride along. The returned
	// count is zero when the vehicle is no longer in the expected stage.
	UpdateStage(ctx context.Context, vehicleID uuid.UUID, from, to enums.StageCode, updates map[string]any) (int64, error)
	InsertStageHistory(ctx context.Context, entry *models.VehicleStageHistory) error
	ListStageHistory(ctx context.Context, vehicleID uuid.UUID) ([]models.VehicleStageHistory, error)
	ListVehicles(ctx context.Context, params pagination.Params, filters VehicleFilters) (*VehicleList, error)
}
