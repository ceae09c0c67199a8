package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/catalog"
	"github.com/motorlote/motorlote-backend/internal/sales"
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
	Transition(ctx context.Context, tx *gorm.DB, input vehicles.TransitionInput) error
}

type saleCreator interface {
	CreateFromReservation(ctx context.Context, tx *gorm.DB, input sales.FromReservationInput) (*models.Sale, error)
}

// Service defines the reservation lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reservation, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Reservation, error)
	ConvertToSale(ctx context.Context, input ConvertInput) (*ConversionResult, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListReservations(ctx context.Context, params pagination.Params, filters ReservationFilters) (*ReservationList, error)
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	vehicles vehicles.Repository
	stages   stageTracker
	sales    saleCreator
	tx       txRunner
	outbox   outboxPublisher
}

// CreateInput captures a new deposit-backed hold.
type CreateInput struct {
	VehicleID     uuid.UUID
	CustomerID    uuid.UUID
	DepositAmount decimal.Decimal
	PaymentMethod enums.PaymentMethodCode
	Notes         *string
	ActorID       uuid.UUID
}

// CancelInput releases a hold.
type CancelInput struct {
	ReservationID uuid.UUID
	Reason        *string
	ActorID       uuid.UUID
}

// ConvertInput turns an active reservation into a sale.
type ConvertInput struct {
	ReservationID            uuid.UUID
	FinalPrice               decimal.Decimal
	PaymentMethod            enums.PaymentMethodCode
	RegisterDepositAsPayment bool
	Notes                    *string
	ActorID                  uuid.UUID
}

// ConversionResult returns both sides of a completed conversion.
type ConversionResult struct {
	Reservation *models.Reservation `json:"reservation"`
	Sale        *models.Sale        `json:"sale"`
}

// ReservationCreatedEvent is emitted when a reservation commits.
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID               `json:"reservation_id"`
	VehicleID     uuid.UUID               `json:"vehicle_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	DepositAmount decimal.Decimal         `json:"deposit_amount"`
	PaymentMethod enums.PaymentMethodCode `json:"payment_method"`
	ReceiptSeq    int                     `json:"receipt_seq"`
	ReceiptYear   int                     `json:"receipt_year"`
}

// ReservationCancelledEvent is emitted when a cancellation commits.
type ReservationCancelledEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	VehicleID     uuid.UUID `json:"vehicle_id"`
	Reason        *string   `json:"reason,omitempty"`
}

// ReservationConvertedEvent is emitted when a conversion commits.
type ReservationConvertedEvent struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	DepositKept   bool            `json:"deposit_kept"`
}

// NewService builds the reservation manager with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, vehiclesRepo vehicles.Repository, stages stageTracker, saleSvc saleCreator, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservations repository required")
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
	if saleSvc == nil {
		return nil, fmt.Errorf("sale creator required")
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
		sales:    saleSvc,
		tx:       tx,
		outbox:   outboxSvc,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reservation, error) {
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !input.DepositAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	var reservation *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cat := s.catalog.WithTx(tx)
		if _, err := cat.FindCustomer(ctx, input.CustomerID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		pm, err := cat.FindPaymentMethod(ctx, input.PaymentMethod)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
		}
		if !pm.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment method is inactive")
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

		repo := s.repo.WithTx(tx)
		if _, err := repo.FindActiveByVehicle(ctx, input.VehicleID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "vehicle already has an active reservation")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active reservation")
		}

		if err := s.stages.Transition(ctx, tx, vehicles.TransitionInput{
			VehicleID: vehicle.ID,
			FromStage: vehicle.StageCode,
			ToStage:   enums.StageBloqueado,
			ActorID:   input.ActorID,
			Force:     true,
		}); err != nil {
			return err
		}

		year := time.Now().Year()
		seq, err := repo.NextReceiptSeq(ctx, year)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign receipt number")
		}

		created, err := repo.CreateReservation(ctx, &models.Reservation{
			VehicleID:     input.VehicleID,
			CustomerID:    input.CustomerID,
			Status:        enums.ReservationStatusActive,
			DepositAmount: input.DepositAmount,
			PaymentMethod: input.PaymentMethod,
			Notes:         input.Notes,
			ReceiptSeq:    seq,
			ReceiptYear:   year,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_reservations_vehicle_active") {
				return pkgerrors.New(pkgerrors.CodeConflict, "vehicle already has an active reservation")
			}
			if dbpkg.IsUniqueViolation(err, "ux_reservations_receipt") {
				return pkgerrors.New(pkgerrors.CodeConflict, "receipt number contention, retry the request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert reservation")
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditReservationCreate,
			AggregateType: enums.AggregateReservation,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: ReservationCreatedEvent{
				ReservationID: created.ID,
				VehicleID:     created.VehicleID,
				CustomerID:    created.CustomerID,
				DepositAmount: created.DepositAmount,
				PaymentMethod: created.PaymentMethod,
				ReceiptSeq:    created.ReceiptSeq,
				ReceiptYear:   created.ReceiptYear,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reservation created event")
		}

		reservation = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Reservation, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	var reservation *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindReservation(ctx, input.ReservationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if loaded.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not active")
		}

		now := time.Now()
		rows, err := repo.UpdateStatus(ctx, loaded.ID, enums.ReservationStatusActive, map[string]any{
			"status":        enums.ReservationStatusCancelled,
			"cancel_reason": input.Reason,
			"cancelled_at":  now,
			"cancelled_by":  input.ActorID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel reservation")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already resolved")
		}

		// Release the vehicle back to circulation unless another workflow
		// moved it away from bloqueado, or another active reservation still
		// holds it (reachable only through direct data repair, the partial
		// unique index blocks it otherwise).
		vehicle, err := s.vehicles.WithTx(tx).FindVehicle(ctx, loaded.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
		held, err := repo.HasActiveHold(ctx, tx, loaded.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check remaining holds")
		}
		if !held && vehicle.StageCode == enums.StageBloqueado {
			if err := s.stages.Transition(ctx, tx, vehicles.TransitionInput{
				VehicleID: vehicle.ID,
				FromStage: enums.StageBloqueado,
				ToStage:   enums.StagePublicado,
				ActorID:   input.ActorID,
				Force:     true,
			}); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditReservationCancel,
			AggregateType: enums.AggregateReservation,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: ReservationCancelledEvent{
				ReservationID: loaded.ID,
				VehicleID:     loaded.VehicleID,
				Reason:        input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reservation cancelled event")
		}

		loaded.Status = enums.ReservationStatusCancelled
		loaded.CancelReason = input.Reason
		loaded.CancelledAt = &now
		loaded.CancelledBy = &input.ActorID
		reservation = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) ConvertToSale(ctx context.Context, input ConvertInput) (*ConversionResult, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !input.FinalPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final price must be positive")
	}

	var result *ConversionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindReservation(ctx, input.ReservationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if loaded.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not active")
		}

		pm, err := s.catalog.WithTx(tx).FindPaymentMethod(ctx, input.PaymentMethod)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
		}
		if !pm.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment method is inactive")
		}

		vehicle, err := s.vehicles.WithTx(tx).FindVehicle(ctx, loaded.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
		if vehicle.Archived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is archived")
		}

		sale, err := s.sales.CreateFromReservation(ctx, tx, sales.FromReservationInput{
			VehicleID:                loaded.VehicleID,
			CustomerID:               loaded.CustomerID,
			ReservationID:            loaded.ID,
			VehicleStage:             vehicle.StageCode,
			FinalPrice:               input.FinalPrice,
			PaymentMethod:            input.PaymentMethod,
			DepositAmount:            loaded.DepositAmount,
			DepositMethod:            loaded.PaymentMethod,
			RegisterDepositAsPayment: input.RegisterDepositAsPayment,
			Notes:                    input.Notes,
			ActorID:                  input.ActorID,
		})
		if err != nil {
			return err
		}

		rows, err := repo.UpdateStatus(ctx, loaded.ID, enums.ReservationStatusActive, map[string]any{
			"status":            enums.ReservationStatusConverted,
			"converted_sale_id": sale.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation converted")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already resolved")
		}

		event := outbox.DomainEvent{
			Action:        enums.AuditReservationConvert,
			AggregateType: enums.AggregateReservation,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: ReservationConvertedEvent{
				ReservationID: loaded.ID,
				SaleID:        sale.ID,
				VehicleID:     loaded.VehicleID,
				FinalPrice:    sale.FinalPrice,
				DepositKept:   input.RegisterDepositAsPayment,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reservation converted event")
		}

		loaded.Status = enums.ReservationStatusConverted
		saleID := sale.ID
		loaded.ConvertedSaleID = &saleID
		result = &ConversionResult{Reservation: loaded, Sale: sale}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	reservation, err := s.repo.FindReservation(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}

func (s *service) ListReservations(ctx context.Context, params pagination.Params, filters ReservationFilters) (*ReservationList, error) {
	list, err := s.repo.ListReservations(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}
	return list, nil
}
