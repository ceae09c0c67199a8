package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

// Advisory lock class for per-year receipt numbering. Shares the int pair
// namespace with nothing else in this database.
const receiptSeqLockClass = 7301

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

func (r *repository) FindReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status = ?", vehicleID, enums.ReservationStatusActive).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) HasActiveHold(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) (bool, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var count int64
	err := conn.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, enums.ReservationStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.ReservationStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) NextReceiptSeq(ctx context.Context, year int) (int, error) {
	// Serialize racing creates on a per-year transaction-scoped lock;
	// without it two transactions read the same MAX and the loser trips
	// ux_reservations_receipt at commit. Advisory locks are a Postgres
	// facility, other dialects fall through to the bare query.
	if r.db.Dialector.Name() == "postgres" {
		err := r.db.WithContext(ctx).
			Exec("SELECT pg_advisory_xact_lock(?, ?)", receiptSeqLockClass, year).Error
		if err != nil {
			return 0, err
		}
	}

	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("receipt_year = ?", year).
		Select("COALESCE(MAX(receipt_seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repository) ListReservations(ctx context.Context, params pagination.Params, filters ReservationFilters) (*ReservationList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Reservation{})
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

	var rows []models.Reservation
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &ReservationList{Reservations: make([]ReservationSummary, 0, len(rows))}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for _, row := range rows {
		list.Reservations = append(list.Reservations, ReservationSummary{
			ID:            row.ID,
			VehicleID:     row.VehicleID,
			CustomerID:    row.CustomerID,
			Status:        row.Status,
			DepositAmount: row.DepositAmount,
			PaymentMethod: row.PaymentMethod,
			ReceiptSeq:    row.ReceiptSeq,
			ReceiptYear:   row.ReceiptYear,
			CreatedAt:     row.CreatedAt,
		})
	}
	return list, nil
}
