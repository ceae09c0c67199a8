package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// SaleFilters describe the inputs supported by the sales list.
type SaleFilters struct {
	Status     *enums.SaleStatus
	VehicleID  *uuid.UUID
	CustomerID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// SaleSummary exposes the fields returned in the sales list.
type SaleSummary struct {
	ID            uuid.UUID               `json:"id"`
	VehicleID     uuid.UUID               `json:"vehicle_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	ReservationID *uuid.UUID              `json:"reservation_id,omitempty"`
	Status        enums.SaleStatus        `json:"status"`
	FinalPrice    decimal.Decimal         `json:"final_price"`
	PaymentMethod enums.PaymentMethodCode `json:"payment_method"`
	CreatedAt     time.Time               `json:"created_at"`
}

// SaleList wraps the paginated sales plus the next page cursor.
type SaleList struct {
	Sales      []SaleSummary `json:"sales"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// SaleDetail is the single-sale read including its payment ledger.
type SaleDetail struct {
	Sale     models.Sale          `json:"sale"`
	Payments []models.SalePayment `json:"payments"`
}
