package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/lock"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/storage"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

const (
	DefaultLockKey = "judge"
	DefaultLockTTL = 10 * time.Minute
)

// RunReport 一次批量判决的结果
type RunReport struct {
	models.JudgeRun
	Verdicts []ai.Verdict    `json:"verdicts"`
	Failures []CircleFailure `json:"failures,omitempty"`
}

type CircleFailure struct {
	CircleID uint64 `json:"circle_id"`
	Error    string `json:"error"`
}

type TriggerConfig struct {
	LockKey string
	LockTTL time.Duration
}

// Trigger judges every circle whose deadline has passed.
type Trigger struct {
	chain  Chain
	judge  ai.Judge
	exec   ai.ToolExecutor
	store  storage.VerdictStore
	locker lock.Locker
	cfg    TriggerConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewTrigger(cfg TriggerConfig, chain Chain, judge ai.Judge, exec ai.ToolExecutor, store storage.VerdictStore, locker lock.Locker, logger *slog.Logger) *Trigger {
	if cfg.LockKey == "" {
		cfg.LockKey = DefaultLockKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &Trigger{
		chain:  chain,
		judge:  judge,
		exec:   exec,
		store:  store,
		locker: locker,
		cfg:    cfg,
		logger: logger.With("component", "trigger"),
		now:    time.Now,
	}
}

// SelectJudgeable returns the unresolved circles whose deadline lies before now.
func SelectJudgeable(circles []models.Circle, now time.Time) []models.Circle {
	var out []models.Circle
	for _, c := range circles {
		if !c.Resolved && units.IsDeadlinePassed(c.Deadline, now) {
			out = append(out, c)
		}
	}
	return out
}

// Run judges one batch. A failing circle is recorded in the report and the
// batch moves on to the next circle instead of aborting; the returned error
// joins every per-circle failure. lock.ErrLockHeld is returned when another
// run is in progress.
//
// The run is bounded by the lock TTL so it never outlives its lock.
func (t *Trigger) Run(ctx context.Context) (*RunReport, error) {
	unlock, err := t.locker.Acquire(ctx, t.cfg.LockKey, t.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire judge lock: %w", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, t.cfg.LockTTL)
	defer cancel()

	report := &RunReport{
		JudgeRun: models.JudgeRun{ID: uuid.NewString(), StartedAt: t.now()},
		Verdicts: []ai.Verdict{},
	}
	logger := t.logger.With("run_id", report.ID)

	circles, err := t.chain.AllCircles(ctx)
	if err != nil {
		err = fmt.Errorf("list circles: %w", err)
		t.finish(ctx, logger, report, err)
		return report, err
	}

	candidates := SelectJudgeable(circles, report.StartedAt)
	report.Candidates = len(candidates)
	logger.Info("judging circles", "total", len(circles), "candidates", len(candidates), "judge", t.judge.Name())

	var errs []error
	for i := range candidates {
		circle := &candidates[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		verdict, err := t.judge.Judge(ctx, circle, t.exec)
		if err != nil {
			logger.Error("failed to judge circle", "circle_id", circle.ID, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, CircleFailure{CircleID: circle.ID, Error: err.Error()})
			errs = append(errs, fmt.Errorf("circle %d: %w", circle.ID, err))
			continue
		}

		report.Judged++
		if verdict.Resolved {
			report.Resolved++
		}
		report.Verdicts = append(report.Verdicts, *verdict)
		logger.Info("circle judged",
			"circle_id", circle.ID,
			"resolved", verdict.Resolved,
			"winner", verdict.Winner,
			"hash", verdict.TransactionHash,
		)

		// 审计日志写入失败不影响判决
		if err := t.store.SaveVerdict(ctx, report.ID, verdict); err != nil {
			logger.Error("failed to save verdict", "circle_id", circle.ID, "error", err)
		}
	}

	joined := errors.Join(errs...)
	t.finish(ctx, logger, report, joined)
	return report, joined
}

func (t *Trigger) finish(ctx context.Context, logger *slog.Logger, report *RunReport, err error) {
	report.FinishedAt = t.now()
	if err != nil {
		report.Error = err.Error()
	}

	// ctx may be cancelled already; the run summary is still recorded
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := t.store.SaveRun(saveCtx, &report.JudgeRun); err != nil {
		logger.Error("failed to save judge run", "error", err)
	}

	logger.Info("judge run finished",
		"candidates", report.Candidates,
		"judged", report.Judged,
		"resolved", report.Resolved,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
}
