package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// Repository writes and reads the append-only audit trail. Only the audit
// worker inserts; request handlers never touch this table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	ListByEntity(ctx context.Context, entityType enums.OutboxAggregateType, entityID uuid.UUID) ([]models.AuditLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByEntity(ctx context.Context, entityType enums.OutboxAggregateType, entityID uuid.UUID) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
