package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// ShipmentLog is an append-only audit line for a status change on a
// shipment or one of its legs.
type ShipmentLog struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID uuid.UUID            `gorm:"column:shipment_id;type:uuid;not null"`
	LegID      *uuid.UUID           `gorm:"column:leg_id;type:uuid"`
	FromStatus enums.ShipmentStatus `gorm:"column:from_status;type:shipment_status_enum;not null"`
	ToStatus   enums.ShipmentStatus `gorm:"column:to_status;type:shipment_status_enum;not null"`
	Note       *string              `gorm:"column:note"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
