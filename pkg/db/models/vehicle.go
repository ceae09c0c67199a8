package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// Vehicle represents one physical unit of inventory. The stage_code column is
// only ever mutated through the stage tracker so every change lands in
// vehicle_stage_history.
type Vehicle struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicensePlate *string               `gorm:"column:license_plate;uniqueIndex"`
	Make         string                `gorm:"column:make;not null"`
	Model        string                `gorm:"column:model;not null"`
	Year         int                   `gorm:"column:year;not null"`
	StageCode    enums.StageCode       `gorm:"column:stage_code;type:text;not null;default:'prospecto'"`
	SoldSaleID   *uuid.UUID            `gorm:"column:sold_sale_id;type:uuid"`
	Archived     bool                  `gorm:"column:archived;not null;default:false"`
	StageHistory []VehicleStageHistory `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
