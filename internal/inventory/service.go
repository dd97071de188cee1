package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
)

// Move describes one stock relocation triggered by a delivery leg. A nil
// origin means the goods enter from the shop; a nil destination means they
// leave the system at the customer.
type Move struct {
	ProductID       uuid.UUID
	FromWarehouseID *uuid.UUID
	ToWarehouseID   *uuid.UUID
	Quantity        int
}

// Service defines stock relocation and read operations.
type Service interface {
	// Relocate applies a move inside the caller's transaction. The removal
	// side runs first so an underflow aborts before any stock is added.
	Relocate(ctx context.Context, tx *gorm.DB, move Move) error
	GetQuantity(ctx context.Context, warehouseID, productID uuid.UUID) (int, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.InventoryRecord, error)
}

type service struct {
	repo Repository
}

// NewService wires an inventory service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Relocate(ctx context.Context, tx *gorm.DB, move Move) error {
	if move.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if move.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "move quantity must be positive")
	}
	if move.FromWarehouseID == nil && move.ToWarehouseID == nil {
		return nil
	}

	repo := s.repo.WithTx(tx)

	if move.FromWarehouseID != nil {
		removed, err := repo.RemoveStock(ctx, *move.FromWarehouseID, move.ProductID, move.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove stock")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeInventoryUnderflow, "insufficient stock at origin warehouse").
				WithDetails(map[string]any{
					"warehouse_id": move.FromWarehouseID.String(),
					"product_id":   move.ProductID.String(),
					"quantity":     move.Quantity,
				})
		}
	}

	if move.ToWarehouseID != nil {
		if err := repo.AddStock(ctx, *move.ToWarehouseID, move.ProductID, move.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add stock")
		}
	}

	return nil
}

func (s *service) GetQuantity(ctx context.Context, warehouseID, productID uuid.UUID) (int, error) {
	if warehouseID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id required")
	}
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	record, err := s.repo.Get(ctx, warehouseID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return record.Quantity, nil
}

func (s *service) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.InventoryRecord, error) {
	if warehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id required")
	}
	if _, err := s.repo.FindWarehouse(ctx, warehouseID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	records, err := s.repo.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory records")
	}
	return records, nil
}
