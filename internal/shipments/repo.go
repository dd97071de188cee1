package shipments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type listShipmentsParams struct {
	Status      *enums.ShipmentStatus
	AgentID     *uuid.UUID
	WarehouseID *uuid.UUID
	Search      string
	Limit       int
	Cursor      *pagination.Cursor
}

// Repository manages persistence for shipments, their legs and audit logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	CreateLegs(ctx context.Context, legs []models.ShipmentLeg) error
	FindShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	FindShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	FindShipmentByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error)
	ListShipments(ctx context.Context, params listShipmentsParams) ([]models.Shipment, *pagination.Cursor, error)
	UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindLeg(ctx context.Context, id uuid.UUID) (*models.ShipmentLeg, error)
	FindLegsByShipment(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLeg, error)
	UpdateLeg(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateLog(ctx context.Context, log *models.ShipmentLog) error
	ListLogs(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) CreateLegs(ctx context.Context, legs []models.ShipmentLeg) error {
	if len(legs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&legs).Error
}

func (r *repository) FindShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&shipment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// FindShipmentByTrackingCode accepts either the shipment-level code or one of
// the per-leg codes stamped at registration.
func (r *repository) FindShipmentByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where(`tracking_code = ? OR EXISTS (
			SELECT 1 FROM shipment_legs
			WHERE shipment_legs.shipment_id = shipments.id
			AND shipment_legs.tracking_code = ?
		)`, trackingCode, trackingCode).
		First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) ListShipments(ctx context.Context, params listShipmentsParams) ([]models.Shipment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Shipment{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.AgentID != nil {
		query = query.Where("agent_id = ?", *params.AgentID)
	}
	if params.WarehouseID != nil {
		query = query.Where(`EXISTS (
			SELECT 1 FROM shipment_legs
			WHERE shipment_legs.shipment_id = shipments.id
			AND (shipment_legs.from_warehouse_id = ? OR shipment_legs.to_warehouse_id = ?)
		)`, *params.WarehouseID, *params.WarehouseID)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("tracking_code LIKE ? OR pickup_address LIKE ? OR delivery_address LIKE ?", like, like, like)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Shipment
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

func (r *repository) UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindLeg(ctx context.Context, id uuid.UUID) (*models.ShipmentLeg, error) {
	var leg models.ShipmentLeg
	if err := r.db.WithContext(ctx).First(&leg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &leg, nil
}

func (r *repository) FindLegsByShipment(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLeg, error) {
	var legs []models.ShipmentLeg
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("sequence ASC").
		Find(&legs).Error; err != nil {
		return nil, err
	}
	return legs, nil
}

func (r *repository) UpdateLeg(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ShipmentLeg{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateLog(ctx context.Context, log *models.ShipmentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListLogs(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLog, error) {
	var logs []models.ShipmentLog
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
