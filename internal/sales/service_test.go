package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/catalog"
	"github.com/motorlote/motorlote-backend/internal/vehicles"
	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	pkgerrors "github.com/motorlote/motorlote-backend/pkg/errors"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type stubSalesRepo struct {
	sale       *models.Sale
	created    *models.Sale
	payments   []models.SalePayment
	updateRows int64
	updates    []map[string]any
	createErr  error
}

func (s *stubSalesRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubSalesRepo) CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	s.created = sale
	return sale, nil
}

func (s *stubSalesRepo) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if s.sale == nil || s.sale.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.sale
	return &copied, nil
}

func (s *stubSalesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.SaleStatus, updates map[string]any) (int64, error) {
	s.updates = append(s.updates, updates)
	return s.updateRows, nil
}

func (s *stubSalesRepo) CreatePayment(ctx context.Context, payment *models.SalePayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments = append(s.payments, *payment)
	return nil
}

func (s *stubSalesRepo) ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error) {
	return s.payments, nil
}

func (s *stubSalesRepo) ListSales(ctx context.Context, params pagination.Params, filters SaleFilters) (*SaleList, error) {
	return &SaleList{}, nil
}

type stubVehiclesRepo struct {
	vehicle *models.Vehicle
}

func (s *stubVehiclesRepo) WithTx(tx *gorm.DB) vehicles.Repository {
	return s
}

func (s *stubVehiclesRepo) FindVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	if s.vehicle == nil || s.vehicle.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.vehicle
	return &copied, nil
}

func (s *stubVehiclesRepo) UpdateStage(ctx context.Context, vehicleID uuid.UUID, from, to enums.StageCode, updates map[string]any) (int64, error) {
	panic("not implemented")
}

func (s *stubVehiclesRepo) InsertStageHistory(ctx context.Context, entry *models.VehicleStageHistory) error {
	panic("not implemented")
}

func (s *stubVehiclesRepo) ListStageHistory(ctx context.Context, vehicleID uuid.UUID) ([]models.VehicleStageHistory, error) {
	panic("not implemented")
}

func (s *stubVehiclesRepo) ListVehicles(ctx context.Context, params pagination.Params, filters vehicles.VehicleFilters) (*vehicles.VehicleList, error) {
	panic("not implemented")
}

type stubCatalogRepo struct {
	inactiveMethods map[enums.PaymentMethodCode]bool
	missingCustomer bool
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository {
	return s
}

func (s *stubCatalogRepo) FindStage(ctx context.Context, code enums.StageCode) (*models.VehicleStage, error) {
	return &models.VehicleStage{Code: code}, nil
}

func (s *stubCatalogRepo) ListStages(ctx context.Context) ([]models.VehicleStage, error) {
	return nil, nil
}

func (s *stubCatalogRepo) FindPaymentMethod(ctx context.Context, code enums.PaymentMethodCode) (*models.PaymentMethod, error) {
	return &models.PaymentMethod{Code: code, Active: !s.inactiveMethods[code]}, nil
}

func (s *stubCatalogRepo) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if s.missingCustomer {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Customer{ID: id}, nil
}

type stubStageTracker struct {
	marked   []vehicles.MarkSoldInput
	cleared  []vehicles.ClearSoldInput
	markErr  error
	clearErr error
}

func (s *stubStageTracker) MarkSold(ctx context.Context, tx *gorm.DB, input vehicles.MarkSoldInput) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, input)
	return nil
}

func (s *stubStageTracker) ClearSold(ctx context.Context, tx *gorm.DB, input vehicles.ClearSoldInput) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, input)
	return nil
}

type stubHolds struct {
	held bool
	err  error
}

func (s *stubHolds) HasActiveHold(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) (bool, error) {
	return s.held, s.err
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	repo     *stubSalesRepo
	vehicles *stubVehiclesRepo
	catalog  *stubCatalogRepo
	stages   *stubStageTracker
	holds    *stubHolds
	outbox   *stubOutboxPublisher
	svc      Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     &stubSalesRepo{updateRows: 1},
		vehicles: &stubVehiclesRepo{},
		catalog:  &stubCatalogRepo{},
		stages:   &stubStageTracker{},
		holds:    &stubHolds{},
		outbox:   &stubOutboxPublisher{},
	}
	svc, err := NewService(f.repo, f.catalog, f.vehicles, f.stages, f.holds, stubTxRunner{}, f.outbox)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestCreateDirectMarksVehicleSold(t *testing.T) {
	f := newFixture(t)
	vehicleID := uuid.New()
	customerID := uuid.New()
	actorID := uuid.New()
	f.vehicles.vehicle = &models.Vehicle{ID: vehicleID, StageCode: enums.StagePublicado}

	sale, err := f.svc.CreateDirect(context.Background(), CreateDirectInput{
		VehicleID:     vehicleID,
		CustomerID:    customerID,
		FinalPrice:    decimal.NewFromInt(20_000_000),
		PaymentMethod: enums.PaymentMethodEfectivo,
		ActorID:       actorID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if sale.Status != enums.SaleStatusActive {
		t.Fatalf("expected active sale, got %s", sale.Status)
	}
	if sale.ReservationID != nil {
		t.Fatalf("direct sale must not reference a reservation")
	}

	if len(f.stages.marked) != 1 {
		t.Fatalf("expected one mark-sold call, got %d", len(f.stages.marked))
	}
	marked := f.stages.marked[0]
	if marked.VehicleID != vehicleID || marked.SaleID != sale.ID || marked.FromStage != enums.StagePublicado {
		t.Fatalf("unexpected mark-sold input %+v", marked)
	}

	if len(f.outbox.events) != 1 || f.outbox.events[0].Action != enums.AuditSaleCreate {
		t.Fatalf("expected sale created event, got %+v", f.outbox.events)
	}
}

func TestCreateDirectRejectsHeldVehicle(t *testing.T) {
	f := newFixture(t)
	vehicleID := uuid.New()
	f.vehicles.vehicle = &models.Vehicle{ID: vehicleID, StageCode: enums.StageBloqueado}
	f.holds.held = true

	_, err := f.svc.CreateDirect(context.Background(), CreateDirectInput{
		VehicleID:     vehicleID,
		CustomerID:    uuid.New(),
		FinalPrice:    decimal.NewFromInt(20_000_000),
		PaymentMethod: enums.PaymentMethodEfectivo,
		ActorID:       uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateDirectRejectsSoldVehicle(t *testing.T) {
	f := newFixture(t)
	vehicleID := uuid.New()
	f.vehicles.vehicle = &models.Vehicle{ID: vehicleID, StageCode: enums.StageVendido}

	_, err := f.svc.CreateDirect(context.Background(), CreateDirectInput{
		VehicleID:     vehicleID,
		CustomerID:    uuid.New(),
		FinalPrice:    decimal.NewFromInt(20_000_000),
		PaymentMethod: enums.PaymentMethodEfectivo,
		ActorID:       uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateDirectRejectsNonPositivePrice(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateDirect(context.Background(), CreateDirectInput{
		VehicleID:     uuid.New(),
		CustomerID:    uuid.New(),
		FinalPrice:    decimal.Zero,
		PaymentMethod: enums.PaymentMethodEfectivo,
		ActorID:       uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateFromReservationRegistersDeposit(t *testing.T) {
	f := newFixture(t)
	vehicleID := uuid.New()
	reservationID := uuid.New()
	actorID := uuid.New()

	sale, err := f.svc.CreateFromReservation(context.Background(), &gorm.DB{}, FromReservationInput{
		VehicleID:                vehicleID,
		CustomerID:               uuid.New(),
		ReservationID:            reservationID,
		VehicleStage:             enums.StageBloqueado,
		FinalPrice:               decimal.NewFromInt(35_000_000),
		PaymentMethod:            enums.PaymentMethodFinanciacion,
		DepositAmount:            decimal.NewFromInt(1_000_000),
		DepositMethod:            enums.PaymentMethodTransferencia,
		RegisterDepositAsPayment: true,
		ActorID:                  actorID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if sale.ReservationID == nil || *sale.ReservationID != reservationID {
		t.Fatalf("expected sale to reference reservation %s", reservationID)
	}

	if len(f.repo.payments) != 1 {
		t.Fatalf("expected one deposit payment, got %d", len(f.repo.payments))
	}
	payment := f.repo.payments[0]
	if payment.Direction != enums.PaymentDirectionIn {
		t.Fatalf("expected inbound payment, got %s", payment.Direction)
	}
	if payment.Amount.Cmp(decimal.NewFromInt(1_000_000)) != 0 {
		t.Fatalf("expected deposit 1000000, got %s", payment.Amount)
	}
	if payment.Method != enums.PaymentMethodTransferencia {
		t.Fatalf("expected transferencia, got %s", payment.Method)
	}
	if payment.Note == nil || *payment.Note != "depósito de reserva" {
		t.Fatalf("unexpected payment note %v", payment.Note)
	}

	if len(f.stages.marked) != 1 {
		t.Fatalf("expected mark-sold call, got %d", len(f.stages.marked))
	}
	// The conversion workflow owns the audit event.
	if len(f.outbox.events) != 0 {
		t.Fatalf("expected no events, got %d", len(f.outbox.events))
	}
}

func TestCreateFromReservationSkipsDepositWhenNotRequested(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFromReservation(context.Background(), &gorm.DB{}, FromReservationInput{
		VehicleID:     uuid.New(),
		CustomerID:    uuid.New(),
		ReservationID: uuid.New(),
		VehicleStage:  enums.StageBloqueado,
		FinalPrice:    decimal.NewFromInt(35_000_000),
		PaymentMethod: enums.PaymentMethodEfectivo,
		DepositAmount: decimal.NewFromInt(1_000_000),
		DepositMethod: enums.PaymentMethodEfectivo,
		ActorID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(f.repo.payments) != 0 {
		t.Fatalf("expected no payments, got %d", len(f.repo.payments))
	}
}

func TestVoidReturnsVehicleAndRefunds(t *testing.T) {
	f := newFixture(t)
	saleID := uuid.New()
	vehicleID := uuid.New()
	actorID := uuid.New()
	refund := decimal.NewFromInt(5_000_000)
	method := enums.PaymentMethodTransferencia

	f.repo.sale = &models.Sale{
		ID:         saleID,
		VehicleID:  vehicleID,
		CustomerID: uuid.New(),
		Status:     enums.SaleStatusActive,
		FinalPrice: decimal.NewFromInt(20_000_000),
	}

	sale, err := f.svc.Void(context.Background(), VoidInput{
		SaleID:       saleID,
		Reason:       "cliente desistió",
		ReturnStage:  enums.StagePublicado,
		RefundAmount: &refund,
		RefundMethod: &method,
		ActorID:      actorID,
	})
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}

	if sale.Status != enums.SaleStatusVoided {
		t.Fatalf("expected voided, got %s", sale.Status)
	}
	if sale.VoidReason == nil || *sale.VoidReason != "cliente desistió" {
		t.Fatalf("unexpected void reason %v", sale.VoidReason)
	}

	if len(f.stages.cleared) != 1 {
		t.Fatalf("expected clear-sold call, got %d", len(f.stages.cleared))
	}
	cleared := f.stages.cleared[0]
	if cleared.VehicleID != vehicleID || cleared.SaleID != saleID || cleared.ReturnStage != enums.StagePublicado {
		t.Fatalf("unexpected clear-sold input %+v", cleared)
	}

	if len(f.repo.payments) != 1 {
		t.Fatalf("expected one refund payment, got %d", len(f.repo.payments))
	}
	payment := f.repo.payments[0]
	if payment.Direction != enums.PaymentDirectionOut {
		t.Fatalf("expected outbound payment, got %s", payment.Direction)
	}
	if payment.Amount.Cmp(refund) != 0 {
		t.Fatalf("expected refund 5000000, got %s", payment.Amount)
	}

	if len(f.outbox.events) != 1 || f.outbox.events[0].Action != enums.AuditSaleVoid {
		t.Fatalf("expected sale voided event, got %+v", f.outbox.events)
	}
}

func TestVoidRequiresReturnStage(t *testing.T) {
	f := newFixture(t)
	saleID := uuid.New()
	f.repo.sale = &models.Sale{
		ID:         saleID,
		VehicleID:  uuid.New(),
		Status:     enums.SaleStatusActive,
		FinalPrice: decimal.NewFromInt(20_000_000),
	}

	_, err := f.svc.Void(context.Background(), VoidInput{
		SaleID:  saleID,
		Reason:  "error de registro",
		ActorID: uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(f.stages.cleared) != 0 {
		t.Fatalf("expected no clear-sold calls, got %+v", f.stages.cleared)
	}
}

func TestVoidRequiresReason(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Void(context.Background(), VoidInput{
		SaleID:      uuid.New(),
		ReturnStage: enums.StagePublicado,
		ActorID:     uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestVoidRequiresRefundMethodWithAmount(t *testing.T) {
	f := newFixture(t)
	refund := decimal.NewFromInt(5_000_000)
	_, err := f.svc.Void(context.Background(), VoidInput{
		SaleID:       uuid.New(),
		Reason:       "cliente desistió",
		ReturnStage:  enums.StagePublicado,
		RefundAmount: &refund,
		ActorID:      uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestVoidRejectsInactiveSale(t *testing.T) {
	f := newFixture(t)
	saleID := uuid.New()
	f.repo.sale = &models.Sale{
		ID:     saleID,
		Status: enums.SaleStatusVoided,
	}

	_, err := f.svc.Void(context.Background(), VoidInput{
		SaleID:      saleID,
		Reason:      "duplicado",
		ReturnStage: enums.StagePublicado,
		ActorID:     uuid.New(),
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestGetSaleIncludesPayments(t *testing.T) {
	f := newFixture(t)
	saleID := uuid.New()
	f.repo.sale = &models.Sale{ID: saleID, Status: enums.SaleStatusActive, FinalPrice: decimal.NewFromInt(20_000_000)}
	f.repo.payments = []models.SalePayment{
		{ID: uuid.New(), SaleID: saleID, Direction: enums.PaymentDirectionIn, Amount: decimal.NewFromInt(1_000_000), Method: enums.PaymentMethodEfectivo},
	}

	detail, err := f.svc.GetSale(context.Background(), saleID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Sale.ID != saleID {
		t.Fatalf("unexpected sale %s", detail.Sale.ID)
	}
	if len(detail.Payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(detail.Payments))
	}
}
