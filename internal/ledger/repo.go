package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type listTransactionsParams struct {
	AgentID uuid.UUID
	Type    *enums.AgentTransactionType
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository manages persistence for agent transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.AgentTransaction) error
	ExistsShipmentTransaction(ctx context.Context, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error)
	List(ctx context.Context, params listTransactionsParams) ([]models.AgentTransaction, *pagination.Cursor, error)
	SumByType(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType) (decimal.Decimal, error)
	SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.AgentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ExistsShipmentTransaction(ctx context.Context, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AgentTransaction{}).
		Where("shipment_id = ? AND type = ?", shipmentID, txnType).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, params listTransactionsParams) ([]models.AgentTransaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.AgentTransaction{}).
		Where("agent_id = ?", params.AgentID)
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.AgentTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > normalized {
		last := rows[normalized]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		rows = rows[:normalized]
	}
	return rows, next, nil
}

func (r *repository) SumByType(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AgentTransaction{}).
		Select("SUM(amount)").
		Where("agent_id = ? AND type = ?", agentID, txnType).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AgentTransaction{}).
		Select("SUM(amount)").
		Where("agent_id = ? AND type = ? AND created_at >= ? AND created_at < ?", agentID, txnType, from, to).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
