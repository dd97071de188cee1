package shipments

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
)

func TestPlanLegsDirectDelivery(t *testing.T) {
	plans, err := PlanLegs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(plans))
	}
	if plans[0].FromWarehouseID != nil || plans[0].ToWarehouseID != nil {
		t.Fatal("direct delivery should have no warehouse endpoints")
	}
}

func TestPlanLegsTwoWarehouseRoute(t *testing.T) {
	w1 := uuid.New()
	w2 := uuid.New()

	plans, err := PlanLegs([]uuid.UUID{w1, w2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(plans))
	}

	if plans[0].FromWarehouseID != nil || plans[0].ToWarehouseID == nil || *plans[0].ToWarehouseID != w1 {
		t.Fatal("first hop should run shop -> w1")
	}
	if plans[1].FromWarehouseID == nil || *plans[1].FromWarehouseID != w1 || plans[1].ToWarehouseID == nil || *plans[1].ToWarehouseID != w2 {
		t.Fatal("second hop should run w1 -> w2")
	}
	if plans[2].FromWarehouseID == nil || *plans[2].FromWarehouseID != w2 || plans[2].ToWarehouseID != nil {
		t.Fatal("last hop should run w2 -> customer")
	}
	for i, plan := range plans {
		if plan.Sequence != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, plan.Sequence)
		}
	}
}

func TestPlanLegsRejectsDuplicateWarehouse(t *testing.T) {
	w := uuid.New()
	_, err := PlanLegs([]uuid.UUID{w, w})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlanLegsRejectsEmptyWarehouseID(t *testing.T) {
	_, err := PlanLegs([]uuid.UUID{uuid.Nil})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
