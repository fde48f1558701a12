package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/songzhibin97/supercircle/internal/judge"
	"github.com/songzhibin97/supercircle/internal/lock"
)

// DefaultJudgeCron runs the judge every ten minutes (seconds field first).
const DefaultJudgeCron = "0 */10 * * * *"

// Runner runs one judge batch.
type Runner interface {
	Run(ctx context.Context) (*judge.RunReport, error)
}

// Scheduler 定时触发批量判决
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	ctx    context.Context
	logger *slog.Logger
}

func NewScheduler(ctx context.Context, runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		runner: runner,
		ctx:    ctx,
		logger: logger.With("component", "scheduler"),
	}
}

// Register adds the judge task on spec. An empty spec uses DefaultJudgeCron.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultJudgeCron
	}
	if _, err := s.cron.AddFunc(spec, s.judgeTask); err != nil {
		return fmt.Errorf("register judge task: %w", err)
	}
	s.logger.Info("judge task registered", "cron", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running task to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the judge task immediately.
func (s *Scheduler) RunNow() {
	s.judgeTask()
}

func (s *Scheduler) judgeTask() {
	if s.ctx.Err() != nil {
		return
	}

	report, err := s.runner.Run(s.ctx)
	switch {
	case errors.Is(err, lock.ErrLockHeld):
		s.logger.Info("judge run skipped, another run in progress")
	case err != nil:
		s.logger.Error("scheduled judge run failed", "error", err)
	default:
		s.logger.Info("scheduled judge run done", "run_id", report.ID, "resolved", report.Resolved)
	}
}
