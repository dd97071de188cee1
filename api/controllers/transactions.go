package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/api/responses"
	"github.com/smartmall/fulfillment-backend/api/validators"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/logger"

	"github.com/smartmall/fulfillment-backend/internal/ledger"
)

type recordTransactionRequest struct {
	ShipmentID *uuid.UUID `json:"shipment_id"`
	Type       string     `json:"type" validate:"required"`
	Amount     string     `json:"amount" validate:"required"`
	Note       *string    `json:"note"`
}

// RecordTransaction appends one agent money event to the ledger. Deposits
// come in through here; collect and bonus rows are created by delivery.
func RecordTransaction(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordTransactionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(req.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Record(r.Context(), ledger.RecordTransactionInput{
			AgentID:    agentID,
			ShipmentID: req.ShipmentID,
			Type:       enums.AgentTransactionType(req.Type),
			Amount:     amount,
			Note:       req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// ListTransactions returns an agent's paginated transaction history.
func ListTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.ListTransactionsInput{AgentID: agentID}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			txnType := enums.AgentTransactionType(raw)
			if !txnType.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type"))
				return
			}
			input.Type = &txnType
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

// RevenueSummary returns an agent's aggregate money position.
func RevenueSummary(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := parseUUIDParam(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.RevenueSummary(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
