package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartmall/fulfillment-backend/api/controllers"
	"github.com/smartmall/fulfillment-backend/api/middleware"
	"github.com/smartmall/fulfillment-backend/internal/agents"
	"github.com/smartmall/fulfillment-backend/internal/inventory"
	"github.com/smartmall/fulfillment-backend/internal/ledger"
	"github.com/smartmall/fulfillment-backend/internal/reconciliation"
	"github.com/smartmall/fulfillment-backend/internal/shipments"
	"github.com/smartmall/fulfillment-backend/pkg/config"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	"github.com/smartmall/fulfillment-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	shipmentService shipments.Service,
	agentService agents.Service,
	ledgerService ledger.Service,
	reconciliationService reconciliation.Service,
	inventoryService inventory.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", controllers.CreateShipment(shipmentService, logg))
			r.Get("/", controllers.ListShipments(shipmentService, logg))
			r.Get("/by-order/{orderId}", controllers.GetShipmentByOrder(shipmentService, logg))
			r.Route("/{shipmentId}", func(r chi.Router) {
				r.Get("/", controllers.GetShipment(shipmentService, logg))
				r.Post("/register", controllers.RegisterShipment(shipmentService, logg))
				r.Post("/cancel", controllers.CancelShipment(shipmentService, logg))
				r.Post("/sync", controllers.SyncShipment(shipmentService, logg))
				r.Get("/logs", controllers.ShipmentLogs(shipmentService, logg))
				r.Get("/label", controllers.ShipmentLabel(shipmentService, logg))
			})
		})

		r.Post("/legs/{legId}/assign", controllers.AssignLegAgent(shipmentService, logg))
		r.Post("/quotes/shipping-fee", controllers.QuoteShippingFee(shipmentService, logg))

		// Courier callback surface: one route per transition verb so the
		// gateway configuration stays a plain URL list.
		r.Route("/tracking/{trackingCode}", func(r chi.Router) {
			r.Get("/", controllers.ResolveTracking(shipmentService, logg))
			r.Post("/pickup", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusPickingUp))
			r.Post("/transit", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusInTransit))
			r.Post("/deliver", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusDelivered))
			r.Post("/cancel", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusCancelled))
			r.Post("/returning", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusReturning))
			r.Post("/returned", controllers.TrackingTransition(shipmentService, logg, enums.ShipmentStatusReturned))
		})

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", controllers.CreateAgent(agentService, logg))
			r.Get("/", controllers.ListAgents(agentService, logg))
			r.Route("/{agentId}", func(r chi.Router) {
				r.Get("/", controllers.GetAgent(agentService, logg))
				r.Patch("/", controllers.UpdateAgent(agentService, logg))
				r.Post("/active", controllers.SetAgentActive(agentService, logg))
				r.Post("/transactions", controllers.RecordTransaction(ledgerService, logg))
				r.Get("/transactions", controllers.ListTransactions(ledgerService, logg))
				r.Get("/revenue-summary", controllers.RevenueSummary(ledgerService, logg))
				r.Get("/reconciliation", controllers.GetSnapshotByAgentAndDate(reconciliationService, logg))
			})
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", controllers.CreateSnapshot(reconciliationService, logg))
			r.Get("/", controllers.ListSnapshots(reconciliationService, logg))
			r.Get("/{snapshotId}", controllers.GetSnapshot(reconciliationService, logg))
			r.Post("/{snapshotId}/complete", controllers.CompleteSnapshot(reconciliationService, logg))
			r.Patch("/{snapshotId}/status", controllers.UpdateSnapshotStatus(reconciliationService, logg))
		})

		r.Route("/warehouses/{warehouseId}/inventory", func(r chi.Router) {
			r.Get("/", controllers.WarehouseInventory(inventoryService, logg))
			r.Get("/{productId}", controllers.WarehouseProductQuantity(inventoryService, logg))
		})
	})

	return r
}
