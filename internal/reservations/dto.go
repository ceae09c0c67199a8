package reservations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// ReservationFilters describe the inputs supported by the reservation list.
type ReservationFilters struct {
	Status     *enums.ReservationStatus
	VehicleID  *uuid.UUID
	CustomerID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ReservationSummary exposes the fields returned in the reservation list.
type ReservationSummary struct {
	ID            uuid.UUID               `json:"id"`
	VehicleID     uuid.UUID               `json:"vehicle_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	Status        enums.ReservationStatus `json:"status"`
	DepositAmount decimal.Decimal         `json:"deposit_amount"`
	PaymentMethod enums.PaymentMethodCode `json:"payment_method"`
	ReceiptSeq    int                     `json:"receipt_seq"`
	ReceiptYear   int                     `json:"receipt_year"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ReservationList wraps the paginated reservations plus the next page cursor.
type ReservationList struct {
	Reservations []ReservationSummary `json:"reservations"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}
