package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
)

// Repository exposes the lookup tables the workflows validate against.
// Stage and payment method CRUD happens through migrations and back-office
// tooling, not through this service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStage(ctx context.Context, code enums.StageCode) (*models.VehicleStage, error)
	ListStages(ctx context.Context) ([]models.VehicleStage, error)
	FindPaymentMethod(ctx context.Context, code enums.PaymentMethodCode) (*models.PaymentMethod, error)
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStage(ctx context.Context, code enums.StageCode) (*models.VehicleStage, error) {
	var stage models.VehicleStage
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (r *repository) ListStages(ctx context.Context) ([]models.VehicleStage, error) {
	var stages []models.VehicleStage
	err := r.db.WithContext(ctx).
		Order("sort_order ASC").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *repository) FindPaymentMethod(ctx context.Context, code enums.PaymentMethodCode) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
