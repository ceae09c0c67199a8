package sales

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlote/motorlote-backend/api/middleware"
	"github.com/motorlote/motorlote-backend/api/responses"
	"github.com/motorlote/motorlote-backend/api/validators"
	internalsales "github.com/motorlote/motorlote-backend/internal/sales"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	pkgerrors "github.com/motorlote/motorlote-backend/pkg/errors"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type createSaleRequest struct {
	VehicleID     string          `json:"vehicle_id" validate:"required,uuid"`
	CustomerID    string          `json:"customer_id" validate:"required,uuid"`
	FinalPrice    decimal.Decimal `json:"final_price" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Notes         *string         `json:"notes,omitempty"`
}

type voidSaleRequest struct {
	Reason       string           `json:"reason" validate:"required"`
	ReturnStage  string           `json:"return_stage" validate:"required"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundMethod *string          `json:"refund_method,omitempty"`
}

// Create records a direct walk-in sale.
func Create(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicleID, _ := uuid.Parse(payload.VehicleID)
		customerID, _ := uuid.Parse(payload.CustomerID)

		sale, err := svc.CreateDirect(r.Context(), internalsales.CreateDirectInput{
			VehicleID:     vehicleID,
			CustomerID:    customerID,
			FinalPrice:    payload.FinalPrice,
			PaymentMethod: enums.PaymentMethodCode(strings.TrimSpace(payload.PaymentMethod)),
			Notes:         payload.Notes,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// Void reverses a completed sale and returns the vehicle to circulation.
func Void(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := parseSaleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload voidSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalsales.VoidInput{
			SaleID:       saleID,
			Reason:       strings.TrimSpace(payload.Reason),
			ReturnStage:  enums.StageCode(strings.TrimSpace(payload.ReturnStage)),
			RefundAmount: payload.RefundAmount,
			ActorID:      actorID,
		}
		if payload.RefundMethod != nil {
			method := enums.PaymentMethodCode(strings.TrimSpace(*payload.RefundMethod))
			input.RefundMethod = &method
		}

		sale, err := svc.Void(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// Detail returns a sale together with its payment ledger.
func Detail(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := parseSaleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// List returns a cursor-paginated page of sales.
func List(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListSales(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func buildFilters(r *http.Request) (internalsales.SaleFilters, error) {
	var filters internalsales.SaleFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.SaleStatus(raw)
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("vehicle_id")); raw != "" {
		vehicleID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicle_id filter")
		}
		filters.VehicleID = &vehicleID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer_id filter")
		}
		filters.CustomerID = &customerID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_from filter")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_to filter")
		}
		filters.DateTo = &to
	}

	return filters, nil
}

func parseSaleID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "saleId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	saleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale id")
	}
	return saleID, nil
}
