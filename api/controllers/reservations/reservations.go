package reservations

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
	internalreservations "github.com/motorlote/motorlote-backend/internal/reservations"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	pkgerrors "github.com/motorlote/motorlote-backend/pkg/errors"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type createReservationRequest struct {
	VehicleID     string          `json:"vehicle_id" validate:"required,uuid"`
	CustomerID    string          `json:"customer_id" validate:"required,uuid"`
	DepositAmount decimal.Decimal `json:"deposit_amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Notes         *string         `json:"notes,omitempty"`
}

type cancelReservationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type convertReservationRequest struct {
	FinalPrice               decimal.Decimal `json:"final_price" validate:"required"`
	PaymentMethod            string          `json:"payment_method" validate:"required"`
	RegisterDepositAsPayment bool            `json:"register_deposit_as_payment,omitempty"`
	Notes                    *string         `json:"notes,omitempty"`
}

// Create places a deposit-backed hold on a vehicle.
func Create(svc internalreservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload createReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicleID, _ := uuid.Parse(payload.VehicleID)
		customerID, _ := uuid.Parse(payload.CustomerID)

		reservation, err := svc.Create(r.Context(), internalreservations.CreateInput{
			VehicleID:     vehicleID,
			CustomerID:    customerID,
			DepositAmount: payload.DepositAmount,
			PaymentMethod: enums.PaymentMethodCode(strings.TrimSpace(payload.PaymentMethod)),
			Notes:         payload.Notes,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

// Cancel releases an active hold.
func Cancel(svc internalreservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		reservationID, err := parseReservationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload cancelReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Cancel(r.Context(), internalreservations.CancelInput{
			ReservationID: reservationID,
			Reason:        payload.Reason,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reservation)
	}
}

// Convert turns an active reservation into a completed sale.
func Convert(svc internalreservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		reservationID, err := parseReservationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload convertReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConvertToSale(r.Context(), internalreservations.ConvertInput{
			ReservationID:            reservationID,
			FinalPrice:               payload.FinalPrice,
			PaymentMethod:            enums.PaymentMethodCode(strings.TrimSpace(payload.PaymentMethod)),
			RegisterDepositAsPayment: payload.RegisterDepositAsPayment,
			Notes:                    payload.Notes,
			ActorID:                  actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// Detail returns a single reservation.
func Detail(svc internalreservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		reservationID, err := parseReservationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.GetReservation(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reservation)
	}
}

// List returns a cursor-paginated page of reservations.
func List(svc internalreservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
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

		list, err := svc.ListReservations(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func buildFilters(r *http.Request) (internalreservations.ReservationFilters, error) {
	var filters internalreservations.ReservationFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.ReservationStatus(raw)
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

func parseReservationID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "reservationId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	reservationID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reservation id")
	}
	return reservationID, nil
}
