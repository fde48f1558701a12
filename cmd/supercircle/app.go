package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/ai/deepseek"
	"github.com/songzhibin97/supercircle/internal/ai/gemini"
	"github.com/songzhibin97/supercircle/internal/ai/openai"
	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/configs"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/judge"
	"github.com/songzhibin97/supercircle/internal/lock"
	"github.com/songzhibin97/supercircle/internal/storage"
	"github.com/songzhibin97/supercircle/internal/wallet"
)

// app holds the components shared by the commands.
type app struct {
	config   *configs.Config
	logger   *slog.Logger
	client   *aptos.Client
	contract *contract.Service
	wallet   *wallet.Service
	closers  []func() error
}

func newApp(config *configs.Config, logger *slog.Logger) *app {
	nodeURLs := config.Chain.NodeURLs
	if len(nodeURLs) == 0 {
		nodeURLs = []string{aptos.NodeURL(config.Chain.Network)}
	}

	nodes := make([]aptos.Node, 0, len(nodeURLs))
	for _, u := range nodeURLs {
		nodes = append(nodes, aptos.NewClient(u))
	}
	// 写操作只走第一个节点，读操作按顺序回退
	client := aptos.NewClient(nodeURLs[0])
	reader := aptos.NewMultiNodeClient(nodes, logger)

	service := contract.NewService(contract.Config{
		ModuleAddress: config.Contract.ModuleAddress,
		ModuleName:    config.Contract.ModuleName,
	}, reader, client, logger)

	var funder wallet.Funder
	if faucetURL, err := aptos.FaucetURL(config.Chain.Network); err == nil {
		funder = aptos.NewFaucet(faucetURL)
	}

	log.Debug("init chain clients", "nodes", reader.BaseURL(), "network", config.Chain.Network)

	return &app{
		config:   config,
		logger:   logger,
		client:   client,
		contract: service,
		wallet:   wallet.NewService(reader, funder, logger),
	}
}

// signer parses the judge/deployer key and checks it against the
// registered judge address when one is configured.
func (a *app) signer() (*aptos.Ed25519Account, error) {
	if a.config.Judge.PrivateKey == "" {
		return nil, errors.New("judge.private_key (DEPLOYER_PRIVATE_KEY) is required")
	}
	account, err := aptos.NewEd25519Account(a.config.Judge.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid judge private key: %w", err)
	}

	if expected := a.config.Judge.SignerAddress; expected != "" && !contract.SameAddress(expected, account.Address()) {
		return nil, fmt.Errorf("judge key address %s does not match AI_SIGNER_ADDRESS %s", account.Address(), expected)
	}
	return account, nil
}

func (a *app) newJudge(ctx context.Context) (ai.Judge, error) {
	cfg := a.config.AIConfig
	switch cfg.Provider {
	case "openai":
		return openai.NewOpenAIJudge(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "deepseek":
		return deepseek.NewDeepSeekJudge(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "gemini":
		return gemini.NewGeminiJudge(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// newStore opens Postgres when a DSN is configured, memory otherwise.
func (a *app) newStore(ctx context.Context) (storage.VerdictStore, error) {
	if a.config.Database.ConnStr == "" {
		log.Debug("no database configured, verdicts kept in memory")
		return storage.NewMemoryStorage(), nil
	}

	store, err := storage.NewPostgresStorage(ctx, a.config.Database.ConnStr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	log.Debug("init storager")
	return store, nil
}

func (a *app) newLocker(ctx context.Context) (lock.Locker, error) {
	if a.config.Redis.Addr == "" {
		return lock.NewLocalLocker(), nil
	}

	locker, err := lock.NewRedisLocker(ctx, a.config.Redis.Addr, a.config.Redis.Password, a.config.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, locker.Close)
	log.Debug("init redis locker", "addr", a.config.Redis.Addr)
	return locker, nil
}

// newTrigger wires the judge pipeline: model, resolver, audit log and lock.
func (a *app) newTrigger(ctx context.Context, store storage.VerdictStore) (*judge.Trigger, error) {
	if err := a.config.ValidateJudge(); err != nil {
		return nil, fmt.Errorf("invalid judge config: %w", err)
	}

	signer, err := a.signer()
	if err != nil {
		return nil, err
	}

	model, err := a.newJudge(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("init judge", "provider", model.Name(), "signer", signer.Address())

	locker, err := a.newLocker(ctx)
	if err != nil {
		return nil, err
	}

	ttl, err := a.config.LockTTL()
	if err != nil {
		return nil, err
	}

	resolver := judge.NewResolver(a.contract, a.contract.Builder(), signer, a.logger)
	return judge.NewTrigger(judge.TriggerConfig{LockTTL: ttl}, a.contract, model, resolver, store, locker, a.logger), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("close failed", "err", err)
		}
	}
}
