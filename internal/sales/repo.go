package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.SaleStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.SalePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error) {
	var payments []models.SalePayment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) ListSales(ctx context.Context, params pagination.Params, filters SaleFilters) (*SaleList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Sale{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.VehicleID != nil {
		query = query.Where("vehicle_id = ?", *filters.VehicleID)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Sale
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &SaleList{Sales: make([]SaleSummary, 0, len(rows))}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for _, row := range rows {
		list.Sales = append(list.Sales, SaleSummary{
			ID:            row.ID,
			VehicleID:     row.VehicleID,
			CustomerID:    row.CustomerID,
			ReservationID: row.ReservationID,
			Status:        row.Status,
			FinalPrice:    row.FinalPrice,
			PaymentMethod: row.PaymentMethod,
			CreatedAt:     row.CreatedAt,
		})
	}
	return list, nil
}
