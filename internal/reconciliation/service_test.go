package reconciliation

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

type fakeSnapshotRepo struct {
	snapshots map[uuid.UUID]*models.ReconciliationSnapshot
	createFn  func(snapshot *models.ReconciliationSnapshot) error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[uuid.UUID]*models.ReconciliationSnapshot)}
}

func (r *fakeSnapshotRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *fakeSnapshotRepo) Create(_ context.Context, snapshot *models.ReconciliationSnapshot) error {
	if r.createFn != nil {
		if err := r.createFn(snapshot); err != nil {
			return err
		}
	}
	stored := *snapshot
	r.snapshots[snapshot.ID] = &stored
	return nil
}

func (r *fakeSnapshotRepo) Find(_ context.Context, id uuid.UUID) (*models.ReconciliationSnapshot, error) {
	snapshot, ok := r.snapshots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *snapshot
	return &out, nil
}

func (r *fakeSnapshotRepo) FindByAgentAndDate(_ context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error) {
	for _, snapshot := range r.snapshots {
		if snapshot.AgentID == agentID && snapshot.Date.Equal(date) {
			out := *snapshot
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSnapshotRepo) FindLatestBefore(_ context.Context, agentID uuid.UUID, date time.Time) (*models.ReconciliationSnapshot, error) {
	var latest *models.ReconciliationSnapshot
	for _, snapshot := range r.snapshots {
		if snapshot.AgentID != agentID || !snapshot.Date.Before(date) {
			continue
		}
		if latest == nil || snapshot.Date.After(latest.Date) {
			latest = snapshot
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := *latest
	return &out, nil
}

func (r *fakeSnapshotRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	snapshot, ok := r.snapshots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		snapshot.Status = v.(enums.ReconciliationStatus)
	}
	if v, ok := updates["completed_at"]; ok {
		switch ts := v.(type) {
		case time.Time:
			snapshot.CompletedAt = &ts
		case *time.Time:
			snapshot.CompletedAt = ts
		}
	}
	return nil
}

func (r *fakeSnapshotRepo) List(_ context.Context, params listSnapshotsParams) ([]models.ReconciliationSnapshot, *pagination.Cursor, error) {
	var rows []models.ReconciliationSnapshot
	for _, snapshot := range r.snapshots {
		if params.AgentID != nil && snapshot.AgentID != *params.AgentID {
			continue
		}
		rows = append(rows, *snapshot)
	}
	return rows, nil, nil
}

type stubSummer struct {
	sums map[enums.AgentTransactionType]decimal.Decimal
}

func (s *stubSummer) SumByTypeInRange(_ context.Context, _ uuid.UUID, txnType enums.AgentTransactionType, _, _ time.Time) (decimal.Decimal, error) {
	if total, ok := s.sums[txnType]; ok {
		return total, nil
	}
	return decimal.Zero, nil
}

func newTestService(t *testing.T, repo Repository, summer transactionSummer) Service {
	t.Helper()
	svc, err := NewService(repo, summer, stubTxRunner{})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreateSnapshotFirstDay(t *testing.T) {
	repo := newFakeSnapshotRepo()
	summer := &stubSummer{sums: map[enums.AgentTransactionType]decimal.Decimal{
		enums.AgentTransactionTypeCollectCOD: decimal.RequireFromString("150000"),
		enums.AgentTransactionTypeBonus:      decimal.RequireFromString("7000"),
		enums.AgentTransactionTypeDepositCOD: decimal.RequireFromString("100000"),
	}}
	svc := newTestService(t, repo, summer)

	snapshot, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{
		AgentID: uuid.New(),
		Date:    day("2026-01-15"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !snapshot.OpeningBalance.IsZero() {
		t.Fatalf("first snapshot should open at zero, got %s", snapshot.OpeningBalance)
	}
	if !snapshot.FinalBalance.Equal(decimal.RequireFromString("43000")) {
		t.Fatalf("expected final balance 43000, got %s", snapshot.FinalBalance)
	}
	if snapshot.Status != enums.ReconciliationStatusPending {
		t.Fatalf("expected pending snapshot, got %s", snapshot.Status)
	}
}

func TestCreateSnapshotCarriesBalanceForward(t *testing.T) {
	repo := newFakeSnapshotRepo()
	summer := &stubSummer{sums: map[enums.AgentTransactionType]decimal.Decimal{
		enums.AgentTransactionTypeCollectCOD: decimal.RequireFromString("50000"),
	}}
	svc := newTestService(t, repo, summer)
	agentID := uuid.New()

	first, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: agentID, Date: day("2026-01-15")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: agentID, Date: day("2026-01-16")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.OpeningBalance.Equal(first.FinalBalance) {
		t.Fatalf("expected opening %s, got %s", first.FinalBalance, second.OpeningBalance)
	}
	if !second.FinalBalance.Equal(decimal.RequireFromString("100000")) {
		t.Fatalf("expected final balance 100000, got %s", second.FinalBalance)
	}
}

func TestCreateSnapshotSameDayConflicts(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, &stubSummer{})
	agentID := uuid.New()

	if _, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: agentID, Date: day("2026-01-15")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same calendar day at a different clock time still collides.
	_, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{
		AgentID: agentID,
		Date:    day("2026-01-15").Add(14 * time.Hour),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateSnapshotMapsUniqueViolation(t *testing.T) {
	repo := newFakeSnapshotRepo()
	repo.createFn = func(_ *models.ReconciliationSnapshot) error {
		return errors.New(`duplicate key value violates unique constraint "ux_reconciliation_snapshots_agent_date"`)
	}
	svc := newTestService(t, repo, &stubSummer{})

	_, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: uuid.New(), Date: day("2026-01-15")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateSnapshotValidation(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &stubSummer{})

	_, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{Date: day("2026-01-15")})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteSnapshot(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, &stubSummer{})

	snapshot, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: uuid.New(), Date: day("2026-01-15")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	completed, err := svc.Complete(context.Background(), snapshot.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Status != enums.ReconciliationStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at stamp")
	}

	again, err := svc.Complete(context.Background(), snapshot.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.CompletedAt.Equal(*completed.CompletedAt) {
		t.Fatal("re-completion must not move the settlement time")
	}
}

func TestUpdateStatusReopensSnapshot(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, &stubSummer{})

	snapshot, err := svc.CreateSnapshot(context.Background(), CreateSnapshotInput{AgentID: uuid.New(), Date: day("2026-01-15")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), snapshot.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := svc.UpdateStatus(context.Background(), snapshot.ID, enums.ReconciliationStatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reopened.Status != enums.ReconciliationStatusPending {
		t.Fatalf("expected pending, got %s", reopened.Status)
	}
	if reopened.CompletedAt != nil {
		t.Fatal("reopening must clear the settlement time")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &stubSummer{})

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enums.ReconciliationStatus("archived"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteMissingSnapshot(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &stubSummer{})

	_, err := svc.Complete(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &stubSummer{})

	from := day("2026-01-15")
	to := day("2026-01-10")
	_, err := svc.List(context.Background(), ListSnapshotsInput{From: &from, To: &to})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
