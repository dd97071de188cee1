package shipments

import (
	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"

	"github.com/smartmall/fulfillment-backend/internal/inventory"
)

// LegPlan is one planned hop. A nil origin means the hop starts at the shop;
// a nil destination means it ends at the customer.
type LegPlan struct {
	Sequence        int
	FromWarehouseID *uuid.UUID
	ToWarehouseID   *uuid.UUID
}

// PlanLegs turns an ordered warehouse route into the full hop list: the
// first hop leaves the shop, the last hop reaches the customer, and every
// intermediate hop moves between consecutive warehouses. An empty route
// plans a single direct shop-to-customer leg.
func PlanLegs(route []uuid.UUID) ([]LegPlan, error) {
	seen := make(map[uuid.UUID]struct{}, len(route))
	for _, warehouseID := range route {
		if warehouseID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "route warehouse id must not be empty")
		}
		if _, dup := seen[warehouseID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "route must not visit a warehouse twice")
		}
		seen[warehouseID] = struct{}{}
	}

	plans := make([]LegPlan, 0, len(route)+1)
	for i := 0; i <= len(route); i++ {
		plan := LegPlan{Sequence: i + 1}
		if i > 0 {
			from := route[i-1]
			plan.FromWarehouseID = &from
		}
		if i < len(route) {
			to := route[i]
			plan.ToWarehouseID = &to
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// moveForLeg maps a delivered leg onto its stock relocation. Legs with
// neither origin nor destination warehouse (direct shop-to-customer) move
// nothing.
func moveForLeg(shipment *models.Shipment, leg *models.ShipmentLeg) inventory.Move {
	return inventory.Move{
		ProductID:       shipment.ProductID,
		FromWarehouseID: leg.FromWarehouseID,
		ToWarehouseID:   leg.ToWarehouseID,
		Quantity:        1,
	}
}
