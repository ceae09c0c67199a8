package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// Sale is the final transaction for one vehicle, either created directly or
// by converting an active reservation. Voiding keeps the row and records why
// and where the vehicle went back to.
type Sale struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID       uuid.UUID               `gorm:"column:vehicle_id;type:uuid;not null;index"`
	CustomerID      uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	ReservationID   *uuid.UUID              `gorm:"column:reservation_id;type:uuid"`
	Status          enums.SaleStatus        `gorm:"column:status;type:text;not null;default:'active'"`
	FinalPrice      decimal.Decimal         `gorm:"column:final_price;type:numeric(14,2);not null"`
	PaymentMethod   enums.PaymentMethodCode `gorm:"column:payment_method;type:text;not null"`
	Notes           *string                 `gorm:"column:notes"`
	VoidReason      *string                 `gorm:"column:void_reason"`
	VoidedAt        *time.Time              `gorm:"column:voided_at"`
	VoidedBy        *uuid.UUID              `gorm:"column:voided_by;type:uuid"`
	ReturnStageCode *enums.StageCode        `gorm:"column:return_stage_code;type:text"`
	Payments        []SalePayment           `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedBy       uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
