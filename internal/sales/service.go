package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/catalog"
	"github.com/motorlote/motorlote-backend/internal/vehicles"
	dbpkg "github.com/motorlote/motorlote-backend/pkg/db"
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

type stageTracker interface {
	MarkSold(ctx context.Context, tx *gorm.DB, input vehicles.MarkSoldInput) error
	ClearSold(ctx context.Context, tx *gorm.DB, input vehicles.ClearSoldInput) error
}

// Service defines the sale lifecycle operations.
type Service interface {
	CreateDirect(ctx context.Context, input CreateDirectInput) (*models.Sale, error)
	CreateFromReservation(ctx context.Context, tx *gorm.DB, input FromReservationInput) (*models.Sale, error)
	Void(ctx context.Context, input VoidInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*SaleDetail, error)
	ListSales(ctx context.Context, params pagination.Params, filters SaleFilters) (*SaleList, error)
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	vehicles vehicles.Repository
	stages   stageTracker
	holds    vehicles.HoldChecker
	tx       txRunner
	outbox   outboxPublisher
}

// CreateDirectInput captures a walk-in sale with no prior reservation.
type CreateDirectInput struct {
	VehicleID     uuid.UUID
	CustomerID    uuid.UUID
	FinalPrice    decimal.Decimal
	PaymentMethod enums.PaymentMethodCode
	Notes         *string
	ActorID       uuid.UUID
}

// FromReservationInput carries everything the conversion workflow resolved
// before handing over to the sale insert. Runs inside the caller's
// transaction; the caller emits the conversion event.
type FromReservationInput struct {
	VehicleID                uuid.UUID
	CustomerID               uuid.UUID
	ReservationID            uuid.UUID
	VehicleStage             enums.StageCode
	FinalPrice               decimal.Decimal
	PaymentMethod            enums.PaymentMethodCode
	DepositAmount            decimal.Decimal
	DepositMethod            enums.PaymentMethodCode
	RegisterDepositAsPayment bool
	Notes                    *string
	ActorID                  uuid.UUID
}

// VoidInput reverses a sale and returns the vehicle to circulation.
type VoidInput struct {
	SaleID       uuid.UUID
	Reason       string
	ReturnStage  enums.StageCode
	RefundAmount *decimal.Decimal
	RefundMethod *enums.PaymentMethodCode
	ActorID      uuid.UUID
}

// SaleCreatedEvent is emitted when a direct sale commits.
type SaleCreatedEvent struct {
	SaleID        uuid.UUID               `json:"sale_id"`
	VehicleID     uuid.UUID               `json:"vehicle_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	FinalPrice    decimal.Decimal         `json:"final_price"`
	PaymentMethod enums.PaymentMethodCode `json:"payment_method"`
}

// SaleVoidedEvent is emitted when a void commits.
type SaleVoidedEvent struct {
	SaleID       uuid.UUID        `json:"sale_id"`
	VehicleID    uuid.UUID        `json:"vehicle_id"`
	Reason       string           `json:"reason"`
	ReturnStage  enums.StageCode  `json:"return_stage"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
}

// NewService builds the sale manager with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, vehiclesRepo vehicles.Repository, stages stageTracker, holds vehicles.HoldChecker, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if vehiclesRepo == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if stages == nil {
		return nil, fmt.Errorf("stage tracker required")
	}
	if holds == nil {
		return nil, fmt.Errorf("hold checker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		vehicles: vehiclesRepo,
		stages:   stages,
		holds:    holds,
		tx:       tx,
		outbox:   outboxSvc,
	}, nil
}

func (s *service) CreateDirect(ctx context.Context, input CreateDirectInput) (*models.Sale, error) {
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !input.FinalPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final price must be positive")
	}

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.checkParties(ctx, tx, input.CustomerID, input.PaymentMethod); err != nil {
			return err
		}

		vehicle, err := s.vehicles.WithTx(tx).FindVehicle(ctx, input.VehicleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
		if vehicle.Archived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is archived")
		}
		if vehicle.StageCode == enums.StageVendido {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle already sold")
		}

		held, err := s.holds.HasActiveHold(ctx, tx, input.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active reservation")
		}
		if held {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active reservation holds this vehicle")
		}

		created, err := s.repo.WithTx(tx).CreateSale(ctx, &models.Sale{
			VehicleID:     input.VehicleID,
			CustomerID:    input.CustomerID,
			Status:        enums.SaleStatusActive,
			FinalPrice:    input.FinalPrice,
			PaymentMethod: input.PaymentMethod,
			Notes:         input.Notes,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_sales_vehicle_active") {
				return pkgerrors.New(pkgerrors.CodeConflict, "vehicle already has an active sale")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
		}

		if err := s.stages.MarkSold(ctx, tx, vehicles.MarkSoldInput{
			VehicleID: input.VehicleID,
			FromStage: vehicle.StageCode,
			SaleID:    created.ID,
			ActorID:   input.ActorID,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditSaleCreate,
			AggregateType: enums.AggregateSale,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: SaleCreatedEvent{
				SaleID:        created.ID,
				VehicleID:     created.VehicleID,
				CustomerID:    created.CustomerID,
				FinalPrice:    created.FinalPrice,
				PaymentMethod: created.PaymentMethod,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale created event")
		}

		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) CreateFromReservation(ctx context.Context, tx *gorm.DB, input FromReservationInput) (*models.Sale, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !input.FinalPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final price must be positive")
	}
	repo := s.repo.WithTx(tx)

	reservationID := input.ReservationID
	sale, err := repo.CreateSale(ctx, &models.Sale{
		VehicleID:     input.VehicleID,
		CustomerID:    input.CustomerID,
		ReservationID: &reservationID,
		Status:        enums.SaleStatusActive,
		FinalPrice:    input.FinalPrice,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		CreatedBy:     input.ActorID,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_sales_vehicle_active") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vehicle already has an active sale")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
	}

	if input.RegisterDepositAsPayment && input.DepositAmount.IsPositive() {
		note := "depósito de reserva"
		payment := &models.SalePayment{
			SaleID:    sale.ID,
			Direction: enums.PaymentDirectionIn,
			Amount:    input.DepositAmount,
			Method:    input.DepositMethod,
			Note:      &note,
			CreatedBy: input.ActorID,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register deposit payment")
		}
	}

	if err := s.stages.MarkSold(ctx, tx, vehicles.MarkSoldInput{
		VehicleID: input.VehicleID,
		FromStage: input.VehicleStage,
		SaleID:    sale.ID,
		ActorID:   input.ActorID,
	}); err != nil {
		return nil, err
	}

	return sale, nil
}

func (s *service) Void(ctx context.Context, input VoidInput) (*models.Sale, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}
	// No single prior state is correct after a void, so the operator picks
	// where the vehicle goes back to.
	if input.ReturnStage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return stage required")
	}
	if input.RefundAmount != nil {
		if !input.RefundAmount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
		}
		if input.RefundMethod == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund method required")
		}
	}

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindSale(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if loaded.Status != enums.SaleStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not active")
		}

		now := time.Now()
		rows, err := repo.UpdateStatus(ctx, loaded.ID, enums.SaleStatusActive, map[string]any{
			"status":            enums.SaleStatusVoided,
			"void_reason":       input.Reason,
			"voided_at":         now,
			"voided_by":         input.ActorID,
			"return_stage_code": input.ReturnStage,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void sale")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale already resolved")
		}

		if err := s.stages.ClearSold(ctx, tx, vehicles.ClearSoldInput{
			VehicleID:   loaded.VehicleID,
			SaleID:      loaded.ID,
			ReturnStage: input.ReturnStage,
			ActorID:     input.ActorID,
		}); err != nil {
			return err
		}

		if input.RefundAmount != nil {
			payment := &models.SalePayment{
				SaleID:    loaded.ID,
				Direction: enums.PaymentDirectionOut,
				Amount:    *input.RefundAmount,
				Method:    *input.RefundMethod,
				Note:      &input.Reason,
				CreatedBy: input.ActorID,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register refund payment")
			}
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditSaleVoid,
			AggregateType: enums.AggregateSale,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: SaleVoidedEvent{
				SaleID:       loaded.ID,
				VehicleID:    loaded.VehicleID,
				Reason:       input.Reason,
				ReturnStage:  input.ReturnStage,
				RefundAmount: input.RefundAmount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale voided event")
		}

		loaded.Status = enums.SaleStatusVoided
		loaded.VoidReason = &input.Reason
		loaded.VoidedAt = &now
		loaded.VoidedBy = &input.ActorID
		loaded.ReturnStageCode = &input.ReturnStage
		sale = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*SaleDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindSale(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale payments")
	}
	return &SaleDetail{Sale: *sale, Payments: payments}, nil
}

func (s *service) ListSales(ctx context.Context, params pagination.Params, filters SaleFilters) (*SaleList, error) {
	list, err := s.repo.ListSales(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return list, nil
}

func (s *service) checkParties(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, method enums.PaymentMethodCode) error {
	cat := s.catalog.WithTx(tx)
	if _, err := cat.FindCustomer(ctx, customerID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	pm, err := cat.FindPaymentMethod(ctx, method)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	if !pm.Active {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is inactive")
	}
	return nil
}
