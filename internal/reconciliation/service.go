package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db"
	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

const agentDateConstraint = "ux_reconciliation_snapshots_agent_date"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// transactionSummer is the slice of the ledger the snapshot builder needs.
type transactionSummer interface {
	SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error)
}

// CreateSnapshotInput identifies the agent and business day to reconcile.
type CreateSnapshotInput struct {
	AgentID uuid.UUID
	Date    time.Time
}

// ListSnapshotsInput filters the snapshot listing.
type ListSnapshotsInput struct {
	AgentID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Params  pagination.Params
}

// SnapshotList is one page of reconciliation snapshots.
type SnapshotList struct {
	Items      []models.ReconciliationSnapshot
	NextCursor string
}

// Service builds and settles the per-agent daily cash snapshots.
type Service interface {
	// CreateSnapshot freezes the agent's ledger totals for one day. The
	// opening balance carries forward from the previous snapshot; a second
	// snapshot for the same agent and day is a conflict.
	CreateSnapshot(ctx context.Context, input CreateSnapshotInput) (*models.ReconciliationSnapshot, error)
	// Complete marks a snapshot settled. Completing an already completed
	// snapshot is a no-op.
	Complete(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error)
	// UpdateStatus moves a snapshot between workflow statuses without touching
	// its balances. Completing stamps completed_at; reopening clears it.
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReconciliationStatus) (*models.ReconciliationSnapshot, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error)
	GetByAgentAndDate(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error)
	List(ctx context.Context, input ListSnapshotsInput) (*SnapshotList, error)
}

type service struct {
	repo   Repository
	ledger transactionSummer
	tx     txRunner
}

// NewService wires a reconciliation service with the provided dependencies.
func NewService(repo Repository, ledgerSummer transactionSummer, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	if ledgerSummer == nil {
		return nil, fmt.Errorf("ledger summer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledger: ledgerSummer, tx: tx}, nil
}

func (s *service) CreateSnapshot(ctx context.Context, input CreateSnapshotInput) (*models.ReconciliationSnapshot, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date required")
	}
	day := truncateToDay(input.Date)

	if _, err := s.repo.FindByAgentAndDate(ctx, input.AgentID, day); err == nil {
		return nil, snapshotExistsError(input.AgentID, day)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing snapshot")
	}

	opening := decimal.Zero
	previous, err := s.repo.FindLatestBefore(ctx, input.AgentID, day)
	if err == nil {
		opening = previous.FinalBalance
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load previous snapshot")
	}

	windowStart := day
	windowEnd := day.Add(24 * time.Hour)

	collected, err := s.ledger.SumByTypeInRange(ctx, input.AgentID, enums.AgentTransactionTypeCollectCOD, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	bonus, err := s.ledger.SumByTypeInRange(ctx, input.AgentID, enums.AgentTransactionTypeBonus, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	deposited, err := s.ledger.SumByTypeInRange(ctx, input.AgentID, enums.AgentTransactionTypeDepositCOD, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ReconciliationSnapshot{
		ID:             uuid.New(),
		AgentID:        input.AgentID,
		Date:           day,
		OpeningBalance: opening,
		TotalCollected: collected,
		TotalBonus:     bonus,
		TotalDeposited: deposited,
		FinalBalance:   opening.Add(collected).Sub(bonus).Sub(deposited),
		Status:         enums.ReconciliationStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, snapshot); err != nil {
			// Concurrent snapshot runs race on (agent_id, date); the unique
			// index decides.
			if db.IsUniqueViolation(err, agentDateConstraint) {
				return snapshotExistsError(input.AgentID, day)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create snapshot")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error) {
	snapshot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot.Status == enums.ReconciliationStatusCompleted {
		return snapshot, nil
	}

	now := time.Now().UTC()
	if err := s.repo.Update(ctx, snapshot.ID, map[string]any{
		"status":       enums.ReconciliationStatusCompleted,
		"completed_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete snapshot")
	}

	snapshot.Status = enums.ReconciliationStatusCompleted
	snapshot.CompletedAt = &now
	return snapshot, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReconciliationStatus) (*models.ReconciliationSnapshot, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reconciliation status")
	}

	snapshot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot.Status == status {
		return snapshot, nil
	}

	updates := map[string]any{"status": status}
	var completedAt *time.Time
	if status == enums.ReconciliationStatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	updates["completed_at"] = completedAt

	if err := s.repo.Update(ctx, snapshot.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update snapshot status")
	}

	snapshot.Status = status
	snapshot.CompletedAt = completedAt
	return snapshot, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot id required")
	}
	snapshot, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "snapshot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshot")
	}
	return snapshot, nil
}

func (s *service) GetByAgentAndDate(ctx context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	snapshot, err := s.repo.FindByAgentAndDate(ctx, agentID, truncateToDay(date))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "snapshot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshot")
	}
	return snapshot, nil
}

func (s *service) List(ctx context.Context, input ListSnapshotsInput) (*SnapshotList, error) {
	if input.From != nil && input.To != nil && input.To.Before(*input.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end before start")
	}

	query := listSnapshotsParams{
		AgentID: input.AgentID,
		From:    input.From,
		To:      input.To,
		Limit:   input.Params.Limit,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list snapshots")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return &SnapshotList{Items: rows, NextCursor: nextCursor}, nil
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func snapshotExistsError(agentID uuid.UUID, day time.Time) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "snapshot already exists for agent and date").
		WithDetails(map[string]any{
			"agent_id": agentID.String(),
			"date":     day.Format("2006-01-02"),
		})
}
