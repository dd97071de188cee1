package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type fakeAgentRepo struct {
	agents map[uuid.UUID]*models.DeliveryAgent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[uuid.UUID]*models.DeliveryAgent)}
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *models.DeliveryAgent) error {
	stored := *agent
	r.agents[agent.ID] = &stored
	return nil
}

func (r *fakeAgentRepo) Find(_ context.Context, id uuid.UUID) (*models.DeliveryAgent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *agent
	return &out, nil
}

func (r *fakeAgentRepo) List(_ context.Context, params listAgentsParams) ([]models.DeliveryAgent, *pagination.Cursor, error) {
	var rows []models.DeliveryAgent
	for _, agent := range r.agents {
		if params.Active != nil && agent.Active != *params.Active {
			continue
		}
		rows = append(rows, *agent)
	}
	return rows, nil, nil
}

func (r *fakeAgentRepo) ListActive(_ context.Context) ([]models.DeliveryAgent, error) {
	var rows []models.DeliveryAgent
	for _, agent := range r.agents {
		if agent.Active {
			rows = append(rows, *agent)
		}
	}
	return rows, nil
}

func (r *fakeAgentRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	agent, ok := r.agents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["name"]; ok {
		agent.Name = v.(string)
	}
	if v, ok := updates["phone"]; ok {
		agent.Phone = v.(string)
	}
	if v, ok := updates["warehouse_id"]; ok {
		warehouseID := v.(uuid.UUID)
		agent.WarehouseID = &warehouseID
	}
	if v, ok := updates["active"]; ok {
		agent.Active = v.(bool)
	}
	return nil
}

func newTestService(t *testing.T) (Service, *fakeAgentRepo) {
	t.Helper()
	repo := newFakeAgentRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, repo
}

func TestCreateAgent(t *testing.T) {
	svc, _ := newTestService(t)

	agent, err := svc.Create(context.Background(), CreateAgentInput{Name: "  Binh Tran ", Phone: "0900000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.Name != "Binh Tran" {
		t.Fatalf("expected trimmed name, got %q", agent.Name)
	}
	if !agent.Active {
		t.Fatal("new agents start active")
	}
}

func TestCreateAgentValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), CreateAgentInput{Phone: "0900000001"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateAgentInput{Name: "Binh Tran"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetMissingAgent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetActiveTogglesOnce(t *testing.T) {
	svc, repo := newTestService(t)

	agent, err := svc.Create(context.Background(), CreateAgentInput{Name: "Binh Tran", Phone: "0900000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.SetActive(context.Background(), agent.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Active {
		t.Fatal("expected agent deactivated")
	}
	if repo.agents[agent.ID].Active {
		t.Fatal("deactivation not persisted")
	}

	active, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active agents, got %d", len(active))
	}
}

func TestUpdateAgentPartialFields(t *testing.T) {
	svc, _ := newTestService(t)

	agent, err := svc.Create(context.Background(), CreateAgentInput{Name: "Binh Tran", Phone: "0900000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	phone := "0900000002"
	updated, err := svc.Update(context.Background(), agent.ID, UpdateAgentInput{Phone: &phone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Phone != phone {
		t.Fatalf("expected phone %q, got %q", phone, updated.Phone)
	}
	if updated.Name != "Binh Tran" {
		t.Fatalf("name should be untouched, got %q", updated.Name)
	}
}
