package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

// Repository defines persistence operations for sales and their payment
// ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	// UpdateStatus applies updates only while the sale still holds the
	// expected status. Zero rows means someone else resolved it first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.SaleStatus, updates map[string]any) (int64, error)
	CreatePayment(ctx context.Context, payment *models.SalePayment) error
	ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error)
	ListSales(ctx context.Context, params pagination.Params, filters SaleFilters) (*SaleList, error)
}
