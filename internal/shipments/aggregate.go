package shipments

import (
	"sort"

	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// Aggregate is the parent shipment state derived from its legs. Status is a
// pure function of the ordered leg statuses, so re-deriving from the same
// legs always yields the same result.
type Aggregate struct {
	Status enums.ShipmentStatus
	// AgentID is the delivering leg's agent when the final leg is delivered.
	AgentID *uuid.UUID
	// FinalDelivery is true when the highest-sequence leg is delivered,
	// which is the one moment the financial side effect may fire.
	FinalDelivery bool
	// Returned is true when the highest-sequence leg finished as returned.
	Returned bool
}

// DeriveAggregate recomputes the parent shipment state from its legs,
// evaluated in descending sequence order so the most advanced hop wins.
// A delivered intermediate leg maps to the parcel's current location:
// in_transit at that leg's destination, or picking_up when only the first
// hop has completed. Legs still actively moving win over completed earlier
// hops only through the explicit fall-through below.
func DeriveAggregate(legs []models.ShipmentLeg) Aggregate {
	if len(legs) == 0 {
		return Aggregate{Status: enums.ShipmentStatusPending}
	}

	ordered := make([]models.ShipmentLeg, len(legs))
	copy(ordered, legs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Sequence > ordered[j].Sequence
	})
	maxSequence := ordered[0].Sequence

	for _, leg := range ordered {
		switch leg.Status {
		case enums.ShipmentStatusCancelled:
			return Aggregate{Status: enums.ShipmentStatusCancelled}
		case enums.ShipmentStatusReturning:
			return Aggregate{Status: enums.ShipmentStatusReturning}
		case enums.ShipmentStatusReturned:
			return Aggregate{Status: enums.ShipmentStatusReturned, Returned: true}
		case enums.ShipmentStatusDelivered:
			if leg.Sequence == maxSequence {
				return Aggregate{
					Status:        enums.ShipmentStatusDelivered,
					AgentID:       leg.AgentID,
					FinalDelivery: true,
				}
			}
			if leg.Sequence == 1 {
				return Aggregate{Status: enums.ShipmentStatusPickingUp}
			}
			return Aggregate{Status: enums.ShipmentStatusInTransit}
		case enums.ShipmentStatusPickingUp, enums.ShipmentStatusInTransit:
			return Aggregate{Status: leg.Status}
		}
	}

	return Aggregate{Status: enums.ShipmentStatusPending}
}
