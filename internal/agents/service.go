package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

// CreateAgentInput describes a new delivery agent.
type CreateAgentInput struct {
	Name        string
	Phone       string
	WarehouseID *uuid.UUID
}

// UpdateAgentInput carries optional field updates; nil fields stay untouched.
type UpdateAgentInput struct {
	Name        *string
	Phone       *string
	WarehouseID *uuid.UUID
}

// ListAgentsInput filters the agent listing.
type ListAgentsInput struct {
	Active *bool
	Search string
	Params pagination.Params
}

// AgentList is one page of delivery agents.
type AgentList struct {
	Items      []models.DeliveryAgent
	NextCursor string
}

// Service manages the delivery agent roster.
type Service interface {
	Create(ctx context.Context, input CreateAgentInput) (*models.DeliveryAgent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.DeliveryAgent, error)
	List(ctx context.Context, input ListAgentsInput) (*AgentList, error)
	ListActive(ctx context.Context) ([]models.DeliveryAgent, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAgentInput) (*models.DeliveryAgent, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.DeliveryAgent, error)
}

type service struct {
	repo Repository
}

// NewService wires an agents service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateAgentInput) (*models.DeliveryAgent, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent name required")
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent phone required")
	}

	agent := &models.DeliveryAgent{
		ID:          uuid.New(),
		Name:        name,
		Phone:       phone,
		WarehouseID: input.WarehouseID,
		Active:      true,
	}
	if err := s.repo.Create(ctx, agent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent")
	}
	return agent, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.DeliveryAgent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	agent, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return agent, nil
}

func (s *service) List(ctx context.Context, input ListAgentsInput) (*AgentList, error) {
	query := listAgentsParams{
		Active: input.Active,
		Search: input.Search,
		Limit:  input.Params.Limit,
	}
	if input.Params.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return &AgentList{Items: rows, NextCursor: nextCursor}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.DeliveryAgent, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active agents")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAgentInput) (*models.DeliveryAgent, error) {
	agent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent name required")
		}
		updates["name"] = name
		agent.Name = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent phone required")
		}
		updates["phone"] = phone
		agent.Phone = phone
	}
	if input.WarehouseID != nil {
		updates["warehouse_id"] = *input.WarehouseID
		agent.WarehouseID = input.WarehouseID
	}
	if len(updates) == 0 {
		return agent, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent")
	}
	return agent, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.DeliveryAgent, error) {
	agent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.Active == active {
		return agent, nil
	}

	if err := s.repo.Update(ctx, id, map[string]any{"active": active}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent")
	}
	agent.Active = active
	return agent, nil
}
