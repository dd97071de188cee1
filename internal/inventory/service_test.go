package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
)

type stockKey struct {
	warehouseID uuid.UUID
	productID   uuid.UUID
}

type stubInventoryRepo struct {
	stock       map[stockKey]int
	warehouses  map[uuid.UUID]models.Warehouse
	removeCalls int
	addCalls    int
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{
		stock:      make(map[stockKey]int),
		warehouses: make(map[uuid.UUID]models.Warehouse),
	}
}

func (s *stubInventoryRepo) addWarehouse(id uuid.UUID) {
	s.warehouses[id] = models.Warehouse{ID: id, Name: "WH " + id.String()[:8]}
}

func (s *stubInventoryRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubInventoryRepo) AddStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) error {
	s.addCalls++
	s.stock[stockKey{warehouseID, productID}] += qty
	return nil
}

func (s *stubInventoryRepo) RemoveStock(ctx context.Context, warehouseID, productID uuid.UUID, qty int) (bool, error) {
	s.removeCalls++
	key := stockKey{warehouseID, productID}
	if s.stock[key] < qty {
		return false, nil
	}
	s.stock[key] -= qty
	return true, nil
}

func (s *stubInventoryRepo) Get(ctx context.Context, warehouseID, productID uuid.UUID) (*models.InventoryRecord, error) {
	key := stockKey{warehouseID, productID}
	qty, ok := s.stock[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.InventoryRecord{WarehouseID: warehouseID, ProductID: productID, Quantity: qty}, nil
}

func (s *stubInventoryRepo) FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, ok := s.warehouses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &warehouse, nil
}

func (s *stubInventoryRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	for key, qty := range s.stock {
		if key.warehouseID == warehouseID {
			records = append(records, models.InventoryRecord{WarehouseID: key.warehouseID, ProductID: key.productID, Quantity: qty})
		}
	}
	return records, nil
}

func TestRelocate_FirstHopAddsAtDestination(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	productID := uuid.New()
	warehouseA := uuid.New()

	if err := svc.Relocate(context.Background(), nil, Move{
		ProductID:     productID,
		ToWarehouseID: &warehouseA,
		Quantity:      1,
	}); err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}

	if got := repo.stock[stockKey{warehouseA, productID}]; got != 1 {
		t.Fatalf("expected 1 unit at warehouse A, got %d", got)
	}
	if repo.removeCalls != 0 {
		t.Fatalf("first hop should not remove stock, got %d remove calls", repo.removeCalls)
	}
}

func TestRelocate_IntermediateHopMovesBetweenWarehouses(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	productID := uuid.New()
	warehouseA := uuid.New()
	warehouseB := uuid.New()
	repo.stock[stockKey{warehouseA, productID}] = 2

	if err := svc.Relocate(context.Background(), nil, Move{
		ProductID:       productID,
		FromWarehouseID: &warehouseA,
		ToWarehouseID:   &warehouseB,
		Quantity:        1,
	}); err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}

	if got := repo.stock[stockKey{warehouseA, productID}]; got != 1 {
		t.Fatalf("expected 1 unit left at warehouse A, got %d", got)
	}
	if got := repo.stock[stockKey{warehouseB, productID}]; got != 1 {
		t.Fatalf("expected 1 unit at warehouse B, got %d", got)
	}
}

func TestRelocate_FinalHopRemovesFromOrigin(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	productID := uuid.New()
	warehouseB := uuid.New()
	repo.stock[stockKey{warehouseB, productID}] = 1

	if err := svc.Relocate(context.Background(), nil, Move{
		ProductID:       productID,
		FromWarehouseID: &warehouseB,
		Quantity:        1,
	}); err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}

	if got := repo.stock[stockKey{warehouseB, productID}]; got != 0 {
		t.Fatalf("expected 0 units at warehouse B, got %d", got)
	}
	if repo.addCalls != 0 {
		t.Fatalf("final hop should not add stock, got %d add calls", repo.addCalls)
	}
}

func TestRelocate_UnderflowFailsWithoutSideEffects(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	productID := uuid.New()
	warehouseA := uuid.New()
	warehouseB := uuid.New()

	err := svc.Relocate(context.Background(), nil, Move{
		ProductID:       productID,
		FromWarehouseID: &warehouseA,
		ToWarehouseID:   &warehouseB,
		Quantity:        1,
	})
	if err == nil {
		t.Fatal("expected underflow error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeInventoryUnderflow) {
		t.Fatalf("expected INVENTORY_UNDERFLOW code, got %v", err)
	}
	if repo.addCalls != 0 {
		t.Fatalf("underflow must not add stock at destination, got %d add calls", repo.addCalls)
	}
}

func TestRelocate_NoWarehousesIsNoOp(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	if err := svc.Relocate(context.Background(), nil, Move{
		ProductID: uuid.New(),
		Quantity:  1,
	}); err != nil {
		t.Fatalf("direct shop-to-customer move should be a no-op, got %v", err)
	}
	if repo.addCalls != 0 || repo.removeCalls != 0 {
		t.Fatalf("no-op move should not touch stock (add=%d remove=%d)", repo.addCalls, repo.removeCalls)
	}
}

func TestRelocate_Validation(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)
	warehouseA := uuid.New()

	err := svc.Relocate(context.Background(), nil, Move{ToWarehouseID: &warehouseA, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing product id, got %v", err)
	}

	err = svc.Relocate(context.Background(), nil, Move{ProductID: uuid.New(), ToWarehouseID: &warehouseA})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for non-positive quantity, got %v", err)
	}
}

func TestGetQuantity_MissingRecordIsZero(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	qty, err := svc.GetQuantity(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("GetQuantity returned error: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected 0 for missing record, got %d", qty)
	}
}

func TestListByWarehouse_UnknownWarehouse(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	_, err := svc.ListByWarehouse(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown warehouse, got %v", err)
	}
}

func TestListByWarehouse_ReturnsStockRecords(t *testing.T) {
	repo := newStubInventoryRepo()
	svc, _ := NewService(repo)

	warehouseA := uuid.New()
	productID := uuid.New()
	repo.addWarehouse(warehouseA)
	repo.stock[stockKey{warehouseA, productID}] = 3

	records, err := svc.ListByWarehouse(context.Background(), warehouseA)
	if err != nil {
		t.Fatalf("ListByWarehouse returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", records[0].Quantity)
	}
}
