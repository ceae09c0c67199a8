package vehicles

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// VehicleFilters describe the inputs supported by the vehicle list.
type VehicleFilters struct {
	StageCode       *enums.StageCode
	Query           string
	IncludeArchived bool
}

// VehicleSummary exposes the fields returned in the vehicle list.
type VehicleSummary struct {
	ID           uuid.UUID       `json:"id"`
	LicensePlate *string         `json:"license_plate,omitempty"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	StageCode    enums.StageCode `json:"stage_code"`
	Archived     bool            `json:"archived"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VehicleList wraps the paginated vehicles plus the next page cursor.
type VehicleList struct {
	Vehicles   []VehicleSummary `json:"vehicles"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// StageChange is one history entry in the vehicle detail.
type StageChange struct {
	FromStage enums.StageCode `json:"from_stage"`
	ToStage   enums.StageCode `json:"to_stage"`
	ActorID   uuid.UUID       `json:"actor_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// VehicleDetail is the single-vehicle read including its stage history.
type VehicleDetail struct {
	Vehicle models.Vehicle `json:"vehicle"`
	History []StageChange  `json:"history"`
}
