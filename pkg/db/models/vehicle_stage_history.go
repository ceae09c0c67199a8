package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// VehicleStageHistory is an append-only record of one stage transition.
type VehicleStageHistory struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID uuid.UUID       `gorm:"column:vehicle_id;type:uuid;not null;index"`
	FromStage enums.StageCode `gorm:"column:from_stage;type:text;not null"`
	ToStage   enums.StageCode `gorm:"column:to_stage;type:text;not null"`
	ActorID   uuid.UUID       `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides gorm's pluralization.
func (VehicleStageHistory) TableName() string {
	return "vehicle_stage_history"
}
