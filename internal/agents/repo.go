package agents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type listAgentsParams struct {
	Active *bool
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

// Repository manages persistence for delivery agents.
type Repository interface {
	Create(ctx context.Context, agent *models.DeliveryAgent) error
	Find(ctx context.Context, id uuid.UUID) (*models.DeliveryAgent, error)
	List(ctx context.Context, params listAgentsParams) ([]models.DeliveryAgent, *pagination.Cursor, error)
	// ListActive returns every agent currently carrying legs, unpaginated,
	// for batch jobs that iterate the whole roster.
	ListActive(ctx context.Context) ([]models.DeliveryAgent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an agents repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, agent *models.DeliveryAgent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.DeliveryAgent, error) {
	var agent models.DeliveryAgent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) List(ctx context.Context, params listAgentsParams) ([]models.DeliveryAgent, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.DeliveryAgent{})
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", like, like)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.DeliveryAgent
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

func (r *repository) ListActive(ctx context.Context) ([]models.DeliveryAgent, error) {
	var rows []models.DeliveryAgent
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryAgent{}).
		Where("id = ?", id).
		Updates(updates).Error
}
