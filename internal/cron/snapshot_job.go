package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/logger"

	"github.com/smartmall/fulfillment-backend/internal/reconciliation"
)

type agentLister interface {
	ListActive(ctx context.Context) ([]models.DeliveryAgent, error)
}

type snapshotCreator interface {
	CreateSnapshot(ctx context.Context, input reconciliation.CreateSnapshotInput) (*models.ReconciliationSnapshot, error)
}

// SnapshotJobParams configure the daily reconciliation snapshot job.
type SnapshotJobParams struct {
	Logger         *logger.Logger
	Agents         agentLister
	Reconciliation snapshotCreator
}

// NewSnapshotJob builds the job that freezes yesterday's cash position for
// every active agent. An agent whose snapshot already exists is skipped, so
// the job is safe to rerun after a partial failure.
func NewSnapshotJob(params SnapshotJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Agents == nil {
		return nil, fmt.Errorf("agent lister required")
	}
	if params.Reconciliation == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	return &snapshotJob{
		logg:           params.Logger,
		agents:         params.Agents,
		reconciliation: params.Reconciliation,
		now:            time.Now,
	}, nil
}

type snapshotJob struct {
	logg           *logger.Logger
	agents         agentLister
	reconciliation snapshotCreator
	now            func() time.Time
}

func (j *snapshotJob) Name() string { return "reconciliation-snapshot" }

func (j *snapshotJob) Run(ctx context.Context) error {
	day := j.now().UTC().Add(-24 * time.Hour)

	agents, err := j.agents.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active agents: %w", err)
	}

	var created, skipped, failed int
	for _, agent := range agents {
		_, err := j.reconciliation.CreateSnapshot(ctx, reconciliation.CreateSnapshotInput{
			AgentID: agent.ID,
			Date:    day,
		})
		switch {
		case err == nil:
			created++
		case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			skipped++
		default:
			failed++
			agentCtx := j.logg.WithAgentID(ctx, agent.ID.String())
			j.logg.Error(agentCtx, "snapshot creation failed", err)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"date":    day.Format("2006-01-02"),
		"created": created,
		"skipped": skipped,
		"failed":  failed,
	})
	j.logg.Info(logCtx, "reconciliation snapshot run complete")

	if failed > 0 {
		return fmt.Errorf("snapshot creation failed for %d of %d agents", failed, len(agents))
	}
	return nil
}
