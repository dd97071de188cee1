package ledger

import (
	"context"
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

const shipmentTypeConstraint = "ux_agent_transactions_shipment_type"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RecordTransactionInput captures the immutable data an agent transaction requires.
type RecordTransactionInput struct {
	AgentID    uuid.UUID
	ShipmentID *uuid.UUID
	Type       enums.AgentTransactionType
	Amount     decimal.Decimal
	Note       *string
}

// ListTransactionsInput filters an agent's transaction history.
type ListTransactionsInput struct {
	AgentID uuid.UUID
	Type    *enums.AgentTransactionType
	Params  pagination.Params
}

// TransactionList is one page of an agent's transaction history.
type TransactionList struct {
	Items      []models.AgentTransaction
	NextCursor string
}

// RevenueSummary aggregates an agent's money position across the ledger.
type RevenueSummary struct {
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	CODBalance     decimal.Decimal `json:"cod_balance"`
	TotalBonus     decimal.Decimal `json:"total_bonus"`
	NetIncome      decimal.Decimal `json:"net_income"`
}

// Service defines operations on the append-only agent transaction ledger.
type Service interface {
	Record(ctx context.Context, input RecordTransactionInput) (*models.AgentTransaction, error)
	// RecordInTx appends a transaction inside the caller's transaction,
	// enforcing the per-shipment idempotency guard.
	RecordInTx(ctx context.Context, tx *gorm.DB, input RecordTransactionInput) (*models.AgentTransaction, error)
	HasShipmentTransaction(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error)
	List(ctx context.Context, input ListTransactionsInput) (*TransactionList, error)
	RevenueSummary(ctx context.Context, agentID uuid.UUID) (*RevenueSummary, error)
	// SumByTypeInRange exposes windowed totals for reconciliation snapshots.
	SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a ledger service with the provided dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Record(ctx context.Context, input RecordTransactionInput) (*models.AgentTransaction, error) {
	var created *models.AgentTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := s.RecordInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) RecordInTx(ctx context.Context, tx *gorm.DB, input RecordTransactionInput) (*models.AgentTransaction, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid agent transaction type %q", input.Type))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must not be negative")
	}
	if input.Type.RequiresShipment() && input.ShipmentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s transactions require a shipment reference", input.Type))
	}

	repo := s.repo.WithTx(tx)

	if input.ShipmentID != nil {
		exists, err := repo.ExistsShipmentTransaction(ctx, *input.ShipmentID, input.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing transaction")
		}
		if exists {
			return nil, duplicateError(*input.ShipmentID, input.Type)
		}
	}

	txn := &models.AgentTransaction{
		AgentID:    input.AgentID,
		ShipmentID: input.ShipmentID,
		Type:       input.Type,
		Amount:     input.Amount,
		Note:       input.Note,
	}
	if err := repo.Create(ctx, txn); err != nil {
		// Concurrent writers can slip past the exists check; the unique
		// index is the authoritative guard.
		if input.ShipmentID != nil && db.IsUniqueViolation(err, shipmentTypeConstraint) {
			return nil, duplicateError(*input.ShipmentID, input.Type)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent transaction")
	}
	return txn, nil
}

func (s *service) HasShipmentTransaction(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error) {
	if shipmentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if !txnType.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid agent transaction type %q", txnType))
	}
	exists, err := s.repo.WithTx(tx).ExistsShipmentTransaction(ctx, shipmentID, txnType)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing transaction")
	}
	return exists, nil
}

func (s *service) List(ctx context.Context, input ListTransactionsInput) (*TransactionList, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Type != nil && !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid agent transaction type %q", *input.Type))
	}

	query := listTransactionsParams{
		AgentID: input.AgentID,
		Type:    input.Type,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agent transactions")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return &TransactionList{Items: rows, NextCursor: nextCursor}, nil
}

func (s *service) RevenueSummary(ctx context.Context, agentID uuid.UUID) (*RevenueSummary, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	collected, err := s.repo.SumByType(ctx, agentID, enums.AgentTransactionTypeCollectCOD)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum collected")
	}
	paid, err := s.repo.SumByType(ctx, agentID, enums.AgentTransactionTypeDepositCOD)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum deposited")
	}
	bonus, err := s.repo.SumByType(ctx, agentID, enums.AgentTransactionTypeBonus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum bonus")
	}

	return &RevenueSummary{
		TotalCollected: collected,
		TotalPaid:      paid,
		CODBalance:     collected.Sub(paid),
		TotalBonus:     bonus,
		NetIncome:      bonus,
	}, nil
}

func (s *service) SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error) {
	if agentID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	total, err := s.repo.SumByTypeInRange(ctx, agentID, txnType, from, to)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum transactions in range")
	}
	return total, nil
}

func duplicateError(shipmentID uuid.UUID, txnType enums.AgentTransactionType) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction already recorded for shipment").
		WithDetails(map[string]any{
			"shipment_id": shipmentID.String(),
			"type":        txnType.String(),
		})
}
