package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// ShipmentLeg is one physical hop of a shipment. A nil FromWarehouseID means
// the hop starts at the shop; a nil ToWarehouseID means it ends at the
// customer. Legs are created together at dispatch and never deleted.
type ShipmentLeg struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID      uuid.UUID            `gorm:"column:shipment_id;type:uuid;not null;uniqueIndex:ux_shipment_legs_sequence,priority:1"`
	Sequence        int                  `gorm:"column:sequence;not null;uniqueIndex:ux_shipment_legs_sequence,priority:2"`
	FromWarehouseID *uuid.UUID           `gorm:"column:from_warehouse_id;type:uuid"`
	ToWarehouseID   *uuid.UUID           `gorm:"column:to_warehouse_id;type:uuid"`
	AgentID         *uuid.UUID           `gorm:"column:agent_id;type:uuid"`
	Status          enums.ShipmentStatus `gorm:"column:status;type:shipment_status_enum;not null;default:'pending'"`
	TrackingCode    *string              `gorm:"column:tracking_code;uniqueIndex"`
	StartedAt       *time.Time           `gorm:"column:started_at"`
	EndedAt         *time.Time           `gorm:"column:ended_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
