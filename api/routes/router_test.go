package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/reservations"
	"github.com/motorlote/motorlote-backend/internal/sales"
	"github.com/motorlote/motorlote-backend/internal/vehicles"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubVehiclesService struct{}

func (stubVehiclesService) TransitionStage(ctx context.Context, input vehicles.TransitionStageInput) (*models.Vehicle, error) {
	return &models.Vehicle{}, nil
}

func (stubVehiclesService) Transition(ctx context.Context, tx *gorm.DB, input vehicles.TransitionInput) error {
	return nil
}

func (stubVehiclesService) MarkSold(ctx context.Context, tx *gorm.DB, input vehicles.MarkSoldInput) error {
	return nil
}

func (stubVehiclesService) ClearSold(ctx context.Context, tx *gorm.DB, input vehicles.ClearSoldInput) error {
	return nil
}

func (stubVehiclesService) GetVehicle(ctx context.Context, id uuid.UUID) (*vehicles.VehicleDetail, error) {
	return &vehicles.VehicleDetail{}, nil
}

func (stubVehiclesService) ListVehicles(ctx context.Context, params pagination.Params, filters vehicles.VehicleFilters) (*vehicles.VehicleList, error) {
	return &vehicles.VehicleList{Vehicles: []vehicles.VehicleSummary{}}, nil
}

type stubReservationsService struct{}

func (stubReservationsService) Create(ctx context.Context, input reservations.CreateInput) (*models.Reservation, error) {
	return &models.Reservation{}, nil
}

func (stubReservationsService) Cancel(ctx context.Context, input reservations.CancelInput) (*models.Reservation, error) {
	return &models.Reservation{}, nil
}

func (stubReservationsService) ConvertToSale(ctx context.Context, input reservations.ConvertInput) (*reservations.ConversionResult, error) {
	return &reservations.ConversionResult{}, nil
}

func (stubReservationsService) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return &models.Reservation{}, nil
}

func (stubReservationsService) ListReservations(ctx context.Context, params pagination.Params, filters reservations.ReservationFilters) (*reservations.ReservationList, error) {
	return &reservations.ReservationList{Reservations: []reservations.ReservationSummary{}}, nil
}

type stubSalesService struct{}

func (stubSalesService) CreateDirect(ctx context.Context, input sales.CreateDirectInput) (*models.Sale, error) {
	return &models.Sale{}, nil
}

func (stubSalesService) CreateFromReservation(ctx context.Context, tx *gorm.DB, input sales.FromReservationInput) (*models.Sale, error) {
	return &models.Sale{}, nil
}

func (stubSalesService) Void(ctx context.Context, input sales.VoidInput) (*models.Sale, error) {
	return &models.Sale{}, nil
}

func (stubSalesService) GetSale(ctx context.Context, id uuid.UUID) (*sales.SaleDetail, error) {
	return &sales.SaleDetail{}, nil
}

func (stubSalesService) ListSales(ctx context.Context, params pagination.Params, filters sales.SaleFilters) (*sales.SaleList, error) {
	return &sales.SaleList{Sales: []sales.SaleSummary{}}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "test"

	logg := logger.New(logger.Options{ServiceName: "router-test"})

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubVehiclesService{},
		stubReservationsService{},
		stubSalesService{},
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Motorlote-Env"); got != "test" {
		t.Fatalf("expected env header test, got %q", got)
	}
}

func TestListVehiclesRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Vehicles []any `json:"vehicles"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateSaleRequiresActorHeader(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"vehicle_id":"b4d9d35c-26a5-4c1f-a1b1-3e89c1a0f001","customer_id":"b4d9d35c-26a5-4c1f-a1b1-3e89c1a0f002","final_price":"20000000","payment_method":"efectivo"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %q", envelope.Error.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
