package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAgent is a shipper who carries legs and handles COD cash.
type DeliveryAgent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Phone       string     `gorm:"column:phone;not null"`
	WarehouseID *uuid.UUID `gorm:"column:warehouse_id;type:uuid"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
