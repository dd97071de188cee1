package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type listSnapshotsParams struct {
	AgentID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository manages persistence for end-of-day reconciliation snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, snapshot *models.ReconciliationSnapshot) error
	Find(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error)
	FindByAgentAndDate(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error)
	// FindLatestBefore returns the agent's most recent snapshot strictly
	// before the given date, used to carry the balance forward.
	FindLatestBefore(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params listSnapshotsParams) ([]models.ReconciliationSnapshot, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconciliation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, snapshot *models.ReconciliationSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error) {
	var snapshot models.ReconciliationSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) FindByAgentAndDate(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error) {
	var snapshot models.ReconciliationSnapshot
	if err := r.db.WithContext(ctx).
		First(&snapshot, "agent_id = ? AND date = ?", agentID, date).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) FindLatestBefore(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error) {
	var snapshot models.ReconciliationSnapshot
	if err := r.db.WithContext(ctx).
		Where("agent_id = ? AND date < ?", agentID, date).
		Order("date DESC").
		First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ReconciliationSnapshot{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, params listSnapshotsParams) ([]models.ReconciliationSnapshot, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.ReconciliationSnapshot{})
	if params.AgentID != nil {
		query = query.Where("agent_id = ?", *params.AgentID)
	}
	if params.From != nil {
		query = query.Where("date >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("date <= ?", *params.To)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.ReconciliationSnapshot
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
