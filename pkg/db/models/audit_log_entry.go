package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// AuditLogEntry is the write-once record of a state-changing action. Rows are
// produced by the audit worker draining the outbox, never by request
// handlers.
type AuditLogEntry struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action     enums.AuditAction         `gorm:"column:action;type:text;not null"`
	EntityType enums.OutboxAggregateType `gorm:"column:entity_type;type:text;not null"`
	EntityID   uuid.UUID                 `gorm:"column:entity_id;type:uuid;not null;index"`
	ActorID    uuid.UUID                 `gorm:"column:actor_id;type:uuid;not null"`
	Payload    json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides gorm's pluralization.
func (AuditLogEntry) TableName() string {
	return "audit_log"
}
