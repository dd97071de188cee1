package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartmall/fulfillment-backend/api/responses"
	"github.com/smartmall/fulfillment-backend/api/validators"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/logger"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"

	"github.com/smartmall/fulfillment-backend/internal/shipments"
)

type createShipmentRequest struct {
	OrderID         uuid.UUID   `json:"order_id" validate:"required"`
	ShopID          uuid.UUID   `json:"shop_id" validate:"required"`
	ProductID       uuid.UUID   `json:"product_id" validate:"required"`
	PickupAddress   string      `json:"pickup_address" validate:"required"`
	DeliveryAddress string      `json:"delivery_address" validate:"required"`
	CODAmount       string      `json:"cod_amount"`
	ShippingFee     string      `json:"shipping_fee"`
	WeightGrams     int         `json:"weight_grams" validate:"min=0"`
	Route           []uuid.UUID `json:"route"`
}

type quoteFeeRequest struct {
	PickupAddress   string `json:"pickup_address" validate:"required"`
	DeliveryAddress string `json:"delivery_address" validate:"required"`
	WeightGrams     int    `json:"weight_grams" validate:"required,min=1"`
}

// CreateShipment dispatches a new shipment for a confirmed order.
func CreateShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createShipmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cod, err := parseAmount(req.CODAmount, "cod_amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fee, err := parseAmount(req.ShippingFee, "shipping_fee")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Create(r.Context(), shipments.CreateShipmentInput{
			OrderID:         req.OrderID,
			ShopID:          req.ShopID,
			ProductID:       req.ProductID,
			PickupAddress:   req.PickupAddress,
			DeliveryAddress: req.DeliveryAddress,
			CODAmount:       cod,
			ShippingFee:     fee,
			WeightGrams:     req.WeightGrams,
			Route:           req.Route,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

// GetShipment returns a shipment with its legs.
func GetShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// GetShipmentByOrder returns the shipment created for an order.
func GetShipmentByOrder(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// ListShipments returns a filtered, cursor-paginated shipment page.
func ListShipments(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := shipments.ListShipmentsInput{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 120),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseShipmentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("agentId")); raw != "" {
			agentID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id"))
				return
			}
			input.AgentID = &agentID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("warehouseId")); raw != "" {
			warehouseID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid warehouse id"))
				return
			}
			input.WarehouseID = &warehouseID
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

// RegisterShipment hands the parcel to the courier and returns the tracking code.
func RegisterShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.RegisterWithCourier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"tracking_code": code})
	}
}

// CancelShipment voids the courier order and cancels every unfinished leg.
func CancelShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.CancelShipment(r.Context(), id, noteFromQuery(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// SyncShipment polls the courier and applies the mapped status.
func SyncShipment(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.SyncFromCourier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}

// ShipmentLogs returns the append-only status history.
func ShipmentLogs(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.Logs(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, logs)
	}
}

// ShipmentLabel streams the courier's printable label PDF.
func ShipmentLabel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pdf, err := svc.Label(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

// QuoteShippingFee prices a prospective parcel with the courier.
func QuoteShippingFee(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteFeeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fee, err := svc.QuoteFee(r.Context(), shipments.QuoteFeeInput{
			PickupAddress:   req.PickupAddress,
			DeliveryAddress: req.DeliveryAddress,
			WeightGrams:     req.WeightGrams,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"fee": fee.String()})
	}
}

// AssignLegAgent puts a delivery agent on a specific leg.
func AssignLegAgent(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	type assignRequest struct {
		AgentID uuid.UUID `json:"agent_id" validate:"required"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		legID, err := parseUUIDParam(r, "legId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		leg, err := svc.AssignAgent(r.Context(), legID, req.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, leg)
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func parsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func noteFromQuery(r *http.Request) *string {
	note := validators.SanitizeString(r.URL.Query().Get("note"), 500)
	if note == "" {
		return nil
	}
	return &note
}
