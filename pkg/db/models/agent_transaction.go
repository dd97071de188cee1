package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// AgentTransaction records an immutable money event for a delivery agent.
// The (shipment_id, type) pair is unique where shipment_id is non-null,
// which is what makes collect-COD and bonus creation idempotent.
type AgentTransaction struct {
	ID         uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID                  `gorm:"column:agent_id;type:uuid;not null"`
	ShipmentID *uuid.UUID                 `gorm:"column:shipment_id;type:uuid;uniqueIndex:ux_agent_transactions_shipment_type,priority:1"`
	Type       enums.AgentTransactionType `gorm:"column:type;type:agent_transaction_type_enum;not null;uniqueIndex:ux_agent_transactions_shipment_type,priority:2"`
	Amount     decimal.Decimal            `gorm:"column:amount;type:numeric(14,2);not null"`
	Note       *string                    `gorm:"column:note"`
	CreatedAt  time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
