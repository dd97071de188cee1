package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
)

// Repository manages persistence for per-warehouse stock records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AddStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) error
	// RemoveStock decrements stock and reports whether a row had enough
	// quantity to satisfy the removal.
	RemoveStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) (bool, error)
	Get(ctx context.Context, warehouseID, productID uuid.UUID) (*models.InventoryRecord, error)
	FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.InventoryRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AddStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE warehouse_id = ? AND product_id = ?
	`, qty, warehouseID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	record := &models.InventoryRecord{
		ID:          uuid.New(),
		WarehouseID: warehouseID,
		ProductID:   productID,
		Quantity:    qty,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) RemoveStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE warehouse_id = ? AND product_id = ? AND quantity >= ?
	`, qty, warehouseID, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Get(ctx context.Context, warehouseID, productID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("product_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
