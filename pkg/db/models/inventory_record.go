package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord tracks on-hand quantity for one product at one warehouse.
// Quantity never goes negative; removals that would underflow fail the
// transaction that triggered them.
type InventoryRecord struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null;uniqueIndex:ux_inventory_records_warehouse_product,priority:1"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_inventory_records_warehouse_product,priority:2"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
