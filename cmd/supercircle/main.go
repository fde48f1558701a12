package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/supercircle/internal/configs"
)

var (
	flagconf string

	log = newLogger(slog.LevelDebug)
)

var rootCmd = &cobra.Command{
	Use:   "supercircle",
	Short: "SuperCircle staking client and AI judge",
	Long: `supercircle reads SuperCircle circles from the Aptos chain, builds
wallet payloads for the front-end and resolves expired circles with an
LLM judge.

Configuration comes from --conf (JSON or YAML), a .env file and the
environment (MODULE_ADDRESS, NETWORK, NODE_URL, DEPLOYER_PRIVATE_KEY,
OPENAI_API_KEY, GEMINI_API_KEY, DATABASE_URL, REDIS_ADDR, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: --conf config.yaml")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// loadConfig reads the config and reconfigures the logger and proxy from it.
func loadConfig() (*configs.Config, error) {
	config, err := configs.Load(flagconf)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log = newLogger(parseLevel(config.LogLevel))

	if config.Proxy != "" {
		_ = os.Setenv("HTTP_PROXY", config.Proxy)
		_ = os.Setenv("HTTPS_PROXY", config.Proxy)
		log.Debug("set proxy ok", "proxy", config.Proxy)
	}
	return config, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}
