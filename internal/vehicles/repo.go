package vehicles

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

// NewRepository builds a vehicles repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) UpdateStage(ctx context.Context, vehicleID uuid.UUID, from, to enums.StageCode, updates map[string]any) (int64, error) {
	values := map[string]any{"stage_code": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ? AND stage_code = ?", vehicleID, from).
		Updates(values)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) InsertStageHistory(ctx context.Context, entry *models.VehicleStageHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListStageHistory(ctx context.Context, vehicleID uuid.UUID) ([]models.VehicleStageHistory, error) {
	var entries []models.VehicleStageHistory
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListVehicles(ctx context.Context, params pagination.Params, filters VehicleFilters) (*VehicleList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Vehicle{})
	if filters.StageCode != nil {
		query = query.Where("stage_code = ?", *filters.StageCode)
	}
	if !filters.IncludeArchived {
		query = query.Where("archived = ?", false)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("license_plate LIKE ? OR make LIKE ? OR model LIKE ?", like, like, like)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Vehicle
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &VehicleList{Vehicles: make([]VehicleSummary, 0, len(rows))}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for _, v := range rows {
		list.Vehicles = append(list.Vehicles, VehicleSummary{
			ID:           v.ID,
			LicensePlate: v.LicensePlate,
			Make:         v.Make,
			Model:        v.Model,
			Year:         v.Year,
			StageCode:    v.StageCode,
			Archived:     v.Archived,
			CreatedAt:    v.CreatedAt,
		})
	}
	return list, nil
}
