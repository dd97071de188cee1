package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// Shipment is one parcel produced from a confirmed order. Its status always
// mirrors the controlling leg and is only written by the aggregator.
type Shipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ShopID          uuid.UUID            `gorm:"column:shop_id;type:uuid;not null"`
	ProductID       uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	AgentID         *uuid.UUID           `gorm:"column:agent_id;type:uuid"`
	Status          enums.ShipmentStatus `gorm:"column:status;type:shipment_status_enum;not null;default:'pending'"`
	PickupAddress   string               `gorm:"column:pickup_address;not null"`
	DeliveryAddress string               `gorm:"column:delivery_address;not null"`
	CODAmount       decimal.Decimal      `gorm:"column:cod_amount;type:numeric(14,2);not null;default:0"`
	ShippingFee     decimal.Decimal      `gorm:"column:shipping_fee;type:numeric(14,2);not null;default:0"`
	WeightGrams     int                  `gorm:"column:weight_grams;not null;default:0"`
	TrackingCode    *string              `gorm:"column:tracking_code;uniqueIndex"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	ReturnedAt      *time.Time           `gorm:"column:returned_at"`
	Legs            []ShipmentLeg        `gorm:"foreignKey:ShipmentID;constraint:OnDelete:RESTRICT"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
