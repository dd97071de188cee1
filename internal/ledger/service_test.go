package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	transactions []models.AgentTransaction
	createFn     func(ctx context.Context, txn *models.AgentTransaction) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, txn *models.AgentTransaction) error {
	if f.createFn != nil {
		return f.createFn(ctx, txn)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	f.transactions = append(f.transactions, *txn)
	return nil
}

func (f *fakeRepository) ExistsShipmentTransaction(ctx context.Context, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error) {
	for _, txn := range f.transactions {
		if txn.ShipmentID != nil && *txn.ShipmentID == shipmentID && txn.Type == txnType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) List(ctx context.Context, params listTransactionsParams) ([]models.AgentTransaction, *pagination.Cursor, error) {
	var rows []models.AgentTransaction
	for _, txn := range f.transactions {
		if txn.AgentID != params.AgentID {
			continue
		}
		if params.Type != nil && txn.Type != *params.Type {
			continue
		}
		rows = append(rows, txn)
	}
	return rows, nil, nil
}

func (f *fakeRepository) SumByType(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, txn := range f.transactions {
		if txn.AgentID == agentID && txn.Type == txnType {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepository) SumByTypeInRange(ctx context.Context, agentID uuid.UUID, txnType enums.AgentTransactionType, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, txn := range f.transactions {
		if txn.AgentID != agentID || txn.Type != txnType {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(txn.Amount)
	}
	return total, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	agentID := uuid.New()
	shipmentID := uuid.New()

	got, err := svc.Record(context.Background(), RecordTransactionInput{
		AgentID:    agentID,
		ShipmentID: &shipmentID,
		Type:       enums.AgentTransactionTypeCollectCOD,
		Amount:     decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if got == nil || got.AgentID != agentID || got.Type != enums.AgentTransactionTypeCollectCOD {
		t.Fatalf("unexpected transaction data: %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected amount: %s", got.Amount)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("expected 1 stored transaction, got %d", len(repo.transactions))
	}
}

func TestService_RecordDuplicateShipmentTransaction(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	agentID := uuid.New()
	shipmentID := uuid.New()
	input := RecordTransactionInput{
		AgentID:    agentID,
		ShipmentID: &shipmentID,
		Type:       enums.AgentTransactionTypeCollectCOD,
		Amount:     decimal.NewFromInt(50000),
	}

	if _, err := svc.Record(context.Background(), input); err != nil {
		t.Fatalf("first Record error: %v", err)
	}

	_, err := svc.Record(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateTransaction) {
		t.Fatalf("expected DUPLICATE_TRANSACTION, got %v", err)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("duplicate must not append, got %d transactions", len(repo.transactions))
	}
}

func TestService_RecordUniqueViolationMapsToDuplicate(t *testing.T) {
	repo := &fakeRepository{}
	repo.createFn = func(ctx context.Context, txn *models.AgentTransaction) error {
		return errors.New(`duplicate key value violates unique constraint "ux_agent_transactions_shipment_type"`)
	}
	svc := newTestService(t, repo)

	shipmentID := uuid.New()
	_, err := svc.Record(context.Background(), RecordTransactionInput{
		AgentID:    uuid.New(),
		ShipmentID: &shipmentID,
		Type:       enums.AgentTransactionTypeBonus,
		Amount:     decimal.NewFromInt(7000),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateTransaction) {
		t.Fatalf("expected DUPLICATE_TRANSACTION from unique violation, got %v", err)
	}
}

func TestService_RecordValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	shipmentID := uuid.New()

	tests := []struct {
		name  string
		input RecordTransactionInput
	}{
		{
			name: "missing agent id",
			input: RecordTransactionInput{
				ShipmentID: &shipmentID,
				Type:       enums.AgentTransactionTypeCollectCOD,
				Amount:     decimal.NewFromInt(100),
			},
		},
		{
			name: "invalid type",
			input: RecordTransactionInput{
				AgentID:    uuid.New(),
				ShipmentID: &shipmentID,
				Type:       enums.AgentTransactionType("not_real"),
				Amount:     decimal.NewFromInt(100),
			},
		},
		{
			name: "negative amount",
			input: RecordTransactionInput{
				AgentID:    uuid.New(),
				ShipmentID: &shipmentID,
				Type:       enums.AgentTransactionTypeCollectCOD,
				Amount:     decimal.NewFromInt(-100),
			},
		},
		{
			name: "collect without shipment",
			input: RecordTransactionInput{
				AgentID: uuid.New(),
				Type:    enums.AgentTransactionTypeCollectCOD,
				Amount:  decimal.NewFromInt(100),
			},
		},
		{
			name: "bonus without shipment",
			input: RecordTransactionInput{
				AgentID: uuid.New(),
				Type:    enums.AgentTransactionTypeBonus,
				Amount:  decimal.NewFromInt(100),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tc.input)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RecordDepositWithoutShipment(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	if _, err := svc.Record(context.Background(), RecordTransactionInput{
		AgentID: uuid.New(),
		Type:    enums.AgentTransactionTypeDepositCOD,
		Amount:  decimal.NewFromInt(250000),
	}); err != nil {
		t.Fatalf("deposit should not require a shipment, got %v", err)
	}
}

func TestService_RevenueSummary(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)
	agentID := uuid.New()

	seed := []struct {
		txnType enums.AgentTransactionType
		amount  int64
	}{
		{enums.AgentTransactionTypeCollectCOD, 100000},
		{enums.AgentTransactionTypeCollectCOD, 50000},
		{enums.AgentTransactionTypeDepositCOD, 120000},
		{enums.AgentTransactionTypeBonus, 7000},
		{enums.AgentTransactionTypeBonus, 7000},
	}
	for _, row := range seed {
		shipmentID := uuid.New()
		ref := &shipmentID
		if row.txnType == enums.AgentTransactionTypeDepositCOD {
			ref = nil
		}
		if _, err := svc.Record(context.Background(), RecordTransactionInput{
			AgentID:    agentID,
			ShipmentID: ref,
			Type:       row.txnType,
			Amount:     decimal.NewFromInt(row.amount),
		}); err != nil {
			t.Fatalf("seed record error: %v", err)
		}
	}

	summary, err := svc.RevenueSummary(context.Background(), agentID)
	if err != nil {
		t.Fatalf("RevenueSummary error: %v", err)
	}
	if !summary.TotalCollected.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("unexpected total collected: %s", summary.TotalCollected)
	}
	if !summary.TotalPaid.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("unexpected total paid: %s", summary.TotalPaid)
	}
	if !summary.CODBalance.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("unexpected cod balance: %s", summary.CODBalance)
	}
	if !summary.TotalBonus.Equal(decimal.NewFromInt(14000)) {
		t.Fatalf("unexpected total bonus: %s", summary.TotalBonus)
	}
	if !summary.NetIncome.Equal(summary.TotalBonus) {
		t.Fatalf("net income should equal bonus, got %s", summary.NetIncome)
	}
}

func TestService_HasShipmentTransaction(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	agentID := uuid.New()
	shipmentID := uuid.New()

	has, err := svc.HasShipmentTransaction(context.Background(), nil, shipmentID, enums.AgentTransactionTypeCollectCOD)
	if err != nil {
		t.Fatalf("HasShipmentTransaction error: %v", err)
	}
	if has {
		t.Fatal("expected no transaction before recording")
	}

	if _, err := svc.Record(context.Background(), RecordTransactionInput{
		AgentID:    agentID,
		ShipmentID: &shipmentID,
		Type:       enums.AgentTransactionTypeCollectCOD,
		Amount:     decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	has, err = svc.HasShipmentTransaction(context.Background(), nil, shipmentID, enums.AgentTransactionTypeCollectCOD)
	if err != nil {
		t.Fatalf("HasShipmentTransaction error: %v", err)
	}
	if !has {
		t.Fatal("expected transaction to be found after recording")
	}
}
