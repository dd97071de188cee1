package controllers

import (
	"net/http"

	"github.com/smartmall/fulfillment-backend/api/responses"
	"github.com/smartmall/fulfillment-backend/pkg/logger"

	"github.com/smartmall/fulfillment-backend/internal/inventory"
)

// WarehouseInventory lists every stock record held at a warehouse.
func WarehouseInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouseID, err := parseUUIDParam(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListByWarehouse(r.Context(), warehouseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// WarehouseProductQuantity returns the on-hand count for one product at one
// warehouse; zero when no record exists yet.
func WarehouseProductQuantity(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouseID, err := parseUUIDParam(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := svc.GetQuantity(r.Context(), warehouseID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"quantity": quantity})
	}
}
