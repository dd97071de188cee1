package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartmall/fulfillment-backend/pkg/enums"
)

// ReconciliationSnapshot is the end-of-day cash position for one agent.
// FinalBalance carries forward: opening balance is the previous snapshot's
// final balance, or zero for the agent's first day.
type ReconciliationSnapshot struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID        uuid.UUID                  `gorm:"column:agent_id;type:uuid;not null;uniqueIndex:ux_reconciliation_snapshots_agent_date,priority:1"`
	Date           time.Time                  `gorm:"column:date;type:date;not null;uniqueIndex:ux_reconciliation_snapshots_agent_date,priority:2"`
	OpeningBalance decimal.Decimal            `gorm:"column:opening_balance;type:numeric(14,2);not null;default:0"`
	TotalCollected decimal.Decimal            `gorm:"column:total_collected;type:numeric(14,2);not null;default:0"`
	TotalBonus     decimal.Decimal            `gorm:"column:total_bonus;type:numeric(14,2);not null;default:0"`
	TotalDeposited decimal.Decimal            `gorm:"column:total_deposited;type:numeric(14,2);not null;default:0"`
	FinalBalance   decimal.Decimal            `gorm:"column:final_balance;type:numeric(14,2);not null;default:0"`
	Status         enums.ReconciliationStatus `gorm:"column:status;type:reconciliation_status_enum;not null;default:'pending'"`
	CompletedAt    *time.Time                 `gorm:"column:completed_at"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
