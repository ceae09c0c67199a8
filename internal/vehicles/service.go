package vehicles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/catalog"
	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	pkgerrors "github.com/motorlote/motorlote-backend/pkg/errors"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// HoldChecker reports whether an active reservation currently holds a
// vehicle. Implemented by the reservations repository.
type HoldChecker interface {
	HasActiveHold(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) (bool, error)
}

// Service is the stage tracker: the only code path that mutates
// vehicles.stage_code, so every change lands in vehicle_stage_history.
type Service interface {
	TransitionStage(ctx context.Context, input TransitionStageInput) (*models.Vehicle, error)
	Transition(ctx context.Context, tx *gorm.DB, input TransitionInput) error
	MarkSold(ctx context.Context, tx *gorm.DB, input MarkSoldInput) error
	ClearSold(ctx context.Context, tx *gorm.DB, input ClearSoldInput) error
	GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDetail, error)
	ListVehicles(ctx context.Context, params pagination.Params, filters VehicleFilters) (*VehicleList, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	holds   HoldChecker
}

// TransitionStageInput captures a manual stage change requested over the API.
type TransitionStageInput struct {
	VehicleID     uuid.UUID
	TargetStage   enums.StageCode
	ExpectedStage *enums.StageCode
	ActorID       uuid.UUID
	Force         bool
}

// TransitionInput is the transaction-scoped primitive other workflows build
// on. FromStage is the stage the caller observed; the update is conditional
// on it still being current.
type TransitionInput struct {
	VehicleID uuid.UUID
	FromStage enums.StageCode
	ToStage   enums.StageCode
	ActorID   uuid.UUID
	Force     bool
}

// MarkSoldInput finalizes a vehicle when its sale commits.
type MarkSoldInput struct {
	VehicleID uuid.UUID
	FromStage enums.StageCode
	SaleID    uuid.UUID
	ActorID   uuid.UUID
}

// ClearSoldInput returns a vehicle to circulation when its sale is voided.
type ClearSoldInput struct {
	VehicleID   uuid.UUID
	SaleID      uuid.UUID
	ReturnStage enums.StageCode
	ActorID     uuid.UUID
}

// StageChangedEvent is emitted when a stage transition is requested manually.
type StageChangedEvent struct {
	VehicleID uuid.UUID       `json:"vehicle_id"`
	FromStage enums.StageCode `json:"from_stage"`
	ToStage   enums.StageCode `json:"to_stage"`
	Forced    bool            `json:"forced"`
}

// NewService builds the stage tracker with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, outboxSvc outboxPublisher, holds HoldChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if holds == nil {
		return nil, fmt.Errorf("hold checker required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tx:      tx,
		outbox:  outboxSvc,
		holds:   holds,
	}, nil
}

func (s *service) TransitionStage(ctx context.Context, input TransitionStageInput) (*models.Vehicle, error) {
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.TargetStage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target stage required")
	}

	var vehicle *models.Vehicle
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindVehicle(ctx, input.VehicleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
		if loaded.Archived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is archived")
		}
		if input.ExpectedStage != nil && *input.ExpectedStage != loaded.StageCode {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle stage changed since it was read").
				WithDetails(map[string]any{
					"expected": *input.ExpectedStage,
					"current":  loaded.StageCode,
				})
		}
		if loaded.StageCode == input.TargetStage {
			vehicle = loaded
			return nil
		}

		if err := s.Transition(ctx, tx, TransitionInput{
			VehicleID: loaded.ID,
			FromStage: loaded.StageCode,
			ToStage:   input.TargetStage,
			ActorID:   input.ActorID,
			Force:     input.Force,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditVehicleStageChange,
			AggregateType: enums.AggregateVehicle,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: StageChangedEvent{
				VehicleID: loaded.ID,
				FromStage: loaded.StageCode,
				ToStage:   input.TargetStage,
				Forced:    input.Force,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stage change event")
		}

		loaded.StageCode = input.TargetStage
		vehicle = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *service) Transition(ctx context.Context, tx *gorm.DB, input TransitionInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	if _, err := s.catalog.WithTx(tx).FindStage(ctx, input.ToStage); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown target stage")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target stage")
	}
	if input.FromStage == input.ToStage {
		return nil
	}

	if !input.Force {
		if input.FromStage == enums.StageVendido {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle already sold")
		}
		if input.FromStage == enums.StageBloqueado {
			held, err := s.holds.HasActiveHold(ctx, tx, input.VehicleID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active reservation")
			}
			if held {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "an active reservation holds this vehicle")
			}
		}
	}

	rows, err := repo.UpdateStage(ctx, input.VehicleID, input.FromStage, input.ToStage, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vehicle stage")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle stage changed concurrently")
	}

	return s.appendHistory(ctx, repo, input.VehicleID, input.FromStage, input.ToStage, input.ActorID)
}

func (s *service) MarkSold(ctx context.Context, tx *gorm.DB, input MarkSoldInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.SaleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	repo := s.repo.WithTx(tx)

	rows, err := repo.UpdateStage(ctx, input.VehicleID, input.FromStage, enums.StageVendido, map[string]any{
		"sold_sale_id": input.SaleID,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark vehicle sold")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle stage changed concurrently")
	}

	return s.appendHistory(ctx, repo, input.VehicleID, input.FromStage, enums.StageVendido, input.ActorID)
}

func (s *service) ClearSold(ctx context.Context, tx *gorm.DB, input ClearSoldInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.ReturnStage == enums.StageVendido {
		return pkgerrors.New(pkgerrors.CodeValidation, "return stage cannot be vendido")
	}
	if _, err := s.catalog.WithTx(tx).FindStage(ctx, input.ReturnStage); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown return stage")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return stage")
	}
	repo := s.repo.WithTx(tx)

	rows, err := repo.UpdateStage(ctx, input.VehicleID, enums.StageVendido, input.ReturnStage, map[string]any{
		"sold_sale_id": nil,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return vehicle to stage")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is not marked sold")
	}

	return s.appendHistory(ctx, repo, input.VehicleID, enums.StageVendido, input.ReturnStage, input.ActorID)
}

func (s *service) GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	vehicle, err := s.repo.FindVehicle(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	history, err := s.repo.ListStageHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stage history")
	}

	detail := &VehicleDetail{Vehicle: *vehicle, History: make([]StageChange, 0, len(history))}
	for _, entry := range history {
		detail.History = append(detail.History, StageChange{
			FromStage: entry.FromStage,
			ToStage:   entry.ToStage,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		})
	}
	return detail, nil
}

func (s *service) ListVehicles(ctx context.Context, params pagination.Params, filters VehicleFilters) (*VehicleList, error) {
	list, err := s.repo.ListVehicles(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}
	return list, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, vehicleID uuid.UUID, from, to enums.StageCode, actorID uuid.UUID) error {
	entry := &models.VehicleStageHistory{
		VehicleID: vehicleID,
		FromStage: from,
		ToStage:   to,
		ActorID:   actorID,
	}
	if err := repo.InsertStageHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stage history")
	}
	return nil
}
