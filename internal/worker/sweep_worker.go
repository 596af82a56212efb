package worker

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/voicemint/api/internal/service"
)

// TaskTypeSweep is the periodic voice reconciliation task. The scheduler
// enqueues it on the configured interval; it can also be enqueued manually.
const TaskTypeSweep = "voices:sweep"

// SweepWorker runs the cleanup sweep as an asynq task.
type SweepWorker struct {
	cleanupService *service.CleanupService
}

func NewSweepWorker(cleanupService *service.CleanupService) *SweepWorker {
	return &SweepWorker{cleanupService: cleanupService}
}

// ProcessTask executes one sweep. Per-item failures are absorbed by the
// sweep itself; an error returned here means the provider or the database
// was unreachable and asynq should retry the task.
func (w *SweepWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log.Printf("[Sweep] starting voice reconciliation")

	report, err := w.cleanupService.Sweep(ctx)
	if err != nil {
		log.Printf("[Sweep] aborted: %v", err)
		return err
	}

	if report.ProjectsFailed > 0 || report.OrphansFailed > 0 {
		log.Printf("[Sweep] finished with per-item failures: %+v", report)
	}
	return nil
}

// NewSweepTask builds the task the scheduler registers.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSweep, nil)
}
