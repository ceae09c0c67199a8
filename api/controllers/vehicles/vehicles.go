package vehicles

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/api/middleware"
	"github.com/motorlote/motorlote-backend/api/responses"
	"github.com/motorlote/motorlote-backend/api/validators"
	internalvehicles "github.com/motorlote/motorlote-backend/internal/vehicles"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	pkgerrors "github.com/motorlote/motorlote-backend/pkg/errors"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/pagination"
)

type transitionStageRequest struct {
	TargetStage   string  `json:"target_stage" validate:"required"`
	ExpectedStage *string `json:"expected_stage,omitempty"`
	Force         bool    `json:"force,omitempty"`
}

// TransitionStage moves a vehicle to a new lifecycle stage.
func TransitionStage(svc internalvehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vehicles service unavailable"))
			return
		}

		vehicleID, err := parseVehicleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
			return
		}

		var payload transitionStageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalvehicles.TransitionStageInput{
			VehicleID:   vehicleID,
			TargetStage: enums.StageCode(strings.TrimSpace(payload.TargetStage)),
			ActorID:     actorID,
			Force:       payload.Force,
		}
		if payload.ExpectedStage != nil {
			expected := enums.StageCode(strings.TrimSpace(*payload.ExpectedStage))
			input.ExpectedStage = &expected
		}

		vehicle, err := svc.TransitionStage(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, vehicle)
	}
}

// Detail returns a vehicle and its stage history.
func Detail(svc internalvehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vehicles service unavailable"))
			return
		}

		vehicleID, err := parseVehicleID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetVehicle(r.Context(), vehicleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// List returns a cursor-paginated page of vehicles.
func List(svc internalvehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vehicles service unavailable"))
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

		filters := internalvehicles.VehicleFilters{
			Query:           strings.TrimSpace(r.URL.Query().Get("q")),
			IncludeArchived: r.URL.Query().Get("include_archived") == "true",
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
			stage := enums.StageCode(raw)
			filters.StageCode = &stage
		}

		list, err := svc.ListVehicles(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func parseVehicleID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "vehicleId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	vehicleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vehicle id")
	}
	return vehicleID, nil
}
