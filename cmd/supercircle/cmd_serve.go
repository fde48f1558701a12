package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/supercircle/internal/judge"
	"github.com/songzhibin97/supercircle/internal/scheduler"
	"github.com/songzhibin97/supercircle/internal/server"
)

var (
	serveNoJudge   bool
	serveRunOnBoot bool
)

// serveCmd runs the HTTP API and the judge schedule
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled judge",
	Long: `Starts the HTTP API. Unless --no-judge is set (or judge.disabled in the
config) it also runs the judge on judge.cron and accepts POST /api/judge.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoJudge, "no-judge", false, "Serve read and payload endpoints only")
	serveCmd.Flags().BoolVar(&serveRunOnBoot, "run-now", false, "Run one judge batch at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	a := newApp(config, log)
	defer a.Close()

	store, err := a.newStore(ctx)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Circles:  a.contract,
		Builder:  a.contract.Builder(),
		Balances: a.wallet,
		Verdicts: store,
		Judge:    disabledJudge{},
	}

	if !serveNoJudge && !config.Judge.Disabled {
		trigger, err := a.newTrigger(ctx, store)
		if err != nil {
			return err
		}
		deps.Judge = trigger

		sched := scheduler.NewScheduler(ctx, trigger, log)
		if err := sched.Register(config.Judge.Cron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if serveRunOnBoot {
			go sched.RunNow()
		}
	}

	srv := server.NewServer(server.Config{
		Addr:        config.HTTP.Addr,
		CORSOrigins: config.HTTP.CORSOrigins,
	}, deps, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var errJudgeDisabled = errors.New("judge disabled on this instance")

// disabledJudge answers POST /api/judge when the judge is not configured.
type disabledJudge struct{}

func (disabledJudge) Run(ctx context.Context) (*judge.RunReport, error) {
	return nil, errJudgeDisabled
}
