package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var judgeTimeout time.Duration

// judgeCmd resolves every expired circle once
var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Judge every unresolved circle past its deadline once",
	Long: `Runs one judge batch and prints the run report. The exit code is non-zero
when any circle failed to be judged.`,
	RunE: runJudge,
}

func init() {
	judgeCmd.Flags().DurationVar(&judgeTimeout, "timeout", 10*time.Minute, "Upper bound for the whole batch")
	rootCmd.AddCommand(judgeCmd)
}

func runJudge(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), judgeTimeout)
	defer cancel()

	a := newApp(config, log)
	defer a.Close()

	store, err := a.newStore(ctx)
	if err != nil {
		return err
	}
	trigger, err := a.newTrigger(ctx, store)
	if err != nil {
		return err
	}

	report, runErr := trigger.Run(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	return runErr
}
