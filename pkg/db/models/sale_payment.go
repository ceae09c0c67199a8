package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// SalePayment is an append-only ledger entry attached to a sale: deposits
// registered at conversion (in) and refunds at void (out). Never updated.
type SalePayment struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID    uuid.UUID               `gorm:"column:sale_id;type:uuid;not null;index"`
	Direction enums.PaymentDirection  `gorm:"column:direction;type:text;not null"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Method    enums.PaymentMethodCode `gorm:"column:method;type:text;not null"`
	Note      *string                 `gorm:"column:note"`
	CreatedBy uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
