package courier

import "github.com/smartmall/fulfillment-backend/pkg/enums"

// statusByExternalCode is the fixed translation table from courier status
// codes to internal shipment statuses. Codes outside the table fall back to
// pending and must be reported as anomalies by the caller, never trusted.
var statusByExternalCode = map[string]enums.ShipmentStatus{
	"1": enums.ShipmentStatusPending,
	"2": enums.ShipmentStatusPickingUp,
	"3": enums.ShipmentStatusInTransit,
	"4": enums.ShipmentStatusDelivered,
	"5": enums.ShipmentStatusCancelled,
}

// MapExternalStatus translates a courier status code into an internal
// shipment status. The second return reports whether the code was known.
func MapExternalStatus(code string) (enums.ShipmentStatus, bool) {
	if status, ok := statusByExternalCode[code]; ok {
		return status, true
	}
	return enums.ShipmentStatusPending, false
}
