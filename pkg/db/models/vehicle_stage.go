package models

import (
	"time"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// VehicleStage is a configurable lookup row describing one disposition a
// vehicle can be in. Open stages are the ones a cancelled reservation may
// release a vehicle back into.
type VehicleStage struct {
	Code      enums.StageCode `gorm:"column:code;type:text;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Open      bool            `gorm:"column:open;not null;default:false"`
	SortOrder int             `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides gorm's pluralization.
func (VehicleStage) TableName() string {
	return "vehicle_stages"
}
