package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// Reservation is a deposit-backed hold on one vehicle for one customer.
// A partial unique index (ux_reservations_vehicle_active) guarantees at most
// one active reservation per vehicle even under racing writers.
type Reservation struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID       uuid.UUID               `gorm:"column:vehicle_id;type:uuid;not null;index"`
	CustomerID      uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	Status          enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'active'"`
	DepositAmount   decimal.Decimal         `gorm:"column:deposit_amount;type:numeric(14,2);not null"`
	PaymentMethod   enums.PaymentMethodCode `gorm:"column:payment_method;type:text;not null"`
	Notes           *string                 `gorm:"column:notes"`
	ReceiptSeq      int                     `gorm:"column:receipt_seq;not null"`
	ReceiptYear     int                     `gorm:"column:receipt_year;not null"`
	CancelReason    *string                 `gorm:"column:cancel_reason"`
	CancelledAt     *time.Time              `gorm:"column:cancelled_at"`
	CancelledBy     *uuid.UUID              `gorm:"column:cancelled_by;type:uuid"`
	ConvertedSaleID *uuid.UUID              `gorm:"column:converted_sale_id;type:uuid"`
	CreatedBy       uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
