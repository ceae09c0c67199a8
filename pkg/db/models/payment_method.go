package models

import (
	"time"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// PaymentMethod is a configurable lookup row for deposit/sale payment codes.
type PaymentMethod struct {
	Code      enums.PaymentMethodCode `gorm:"column:code;type:text;primaryKey"`
	Name      string                  `gorm:"column:name;not null"`
	Active    bool                    `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
