package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartmall/fulfillment-backend/api/responses"
	"github.com/smartmall/fulfillment-backend/api/validators"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/logger"

	"github.com/smartmall/fulfillment-backend/internal/shipments"
)

// ResolveTracking returns the leg a courier callback for the code refers to.
func ResolveTracking(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := validators.SanitizeString(chi.URLParam(r, "trackingCode"), 64)
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking code required"))
			return
		}

		leg, err := svc.ResolveTracking(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, leg)
	}
}

// TrackingTransition moves the resolved leg to the given target status. Used
// for the courier callback endpoints: one route per transition verb.
func TrackingTransition(svc shipments.Service, logg *logger.Logger, target enums.ShipmentStatus) http.HandlerFunc {
	type transitionRequest struct {
		Note *string `json:"note"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := validators.SanitizeString(chi.URLParam(r, "trackingCode"), 64)
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking code required"))
			return
		}

		var req transitionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTrackingCode(ctx, code)
		}

		shipment, err := svc.AdvanceByTracking(ctx, code, target, req.Note)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}
