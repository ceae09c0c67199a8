package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is referenced by reservations and sales; its CRUD lives outside
// the sales lifecycle.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Document  string    `gorm:"column:document;not null;uniqueIndex"`
	Phone     *string   `gorm:"column:phone"`
	Email     *string   `gorm:"column:email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
