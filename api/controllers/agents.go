package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/api/responses"
	"github.com/smartmall/fulfillment-backend/api/validators"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/logger"

	"github.com/smartmall/fulfillment-backend/internal/agents"
)

type createAgentRequest struct {
	Name        string     `json:"name" validate:"required"`
	Phone       string     `json:"phone" validate:"required"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
}

type updateAgentRequest struct {
	Name        *string    `json:"name"`
	Phone       *string    `json:"phone"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
}

type setAgentActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CreateAgent registers a delivery agent.
func CreateAgent(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.Create(r.Context(), agents.CreateAgentInput{
			Name:        req.Name,
			Phone:       req.Phone,
			WarehouseID: req.WarehouseID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, agent)
	}
}

// GetAgent returns one delivery agent.
func GetAgent(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agent)
	}
}

// ListAgents returns the paginated agent roster.
func ListAgents(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := agents.ListAgentsInput{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 120),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid active filter"))
				return
			}
			input.Active = &active
		}

		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Params = params

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// UpdateAgent applies partial field updates to an agent.
func UpdateAgent(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.Update(r.Context(), id, agents.UpdateAgentInput{
			Name:        req.Name,
			Phone:       req.Phone,
			WarehouseID: req.WarehouseID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agent)
	}
}

// SetAgentActive switches an agent in or out of the active roster.
func SetAgentActive(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setAgentActiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.SetActive(r.Context(), id, *req.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agent)
	}
}
