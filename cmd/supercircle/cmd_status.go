package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/utils/units"
)

// statusCmd prints the contract state for debugging
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show contract initialization, statistics and circles",
	RunE:  runStatus,
}

type statusReport struct {
	Module         string                      `json:"module"`
	Initialization models.InitializationStatus `json:"initialization"`
	VaultAddress   string                      `json:"vault_address,omitempty"`
	DerivedVault   string                      `json:"derived_vault_address,omitempty"`
	Stats          *models.CircleStats         `json:"stats,omitempty"`
	CountMismatch  bool                        `json:"count_mismatch,omitempty"`
	Circles        []circleLine                `json:"circles,omitempty"`
}

type circleLine struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
	Created     string `json:"created"`
	PrizePool   string `json:"prize_pool"`
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a := newApp(config, log)
	defer a.Close()

	report := statusReport{
		Module:         config.Contract.ModuleAddress + "::" + config.Contract.ModuleName,
		Initialization: a.contract.InitializationStatus(ctx),
	}

	if vault, err := a.contract.VaultAddress(ctx); err == nil {
		report.VaultAddress = vault
	} else {
		log.Warn("get_vault_addr failed", "err", err)
	}
	if derived, err := a.contract.DerivedVaultAddress(); err == nil {
		report.DerivedVault = derived
	}

	if report.Initialization.IsInitialized {
		stats, err := a.contract.Stats(ctx)
		if err != nil {
			return err
		}
		report.Stats = stats
		// 视图返回的总数应与 CircleBook 中的数量一致
		report.CountMismatch = stats.TotalCircles != uint64(report.Initialization.CircleCount)

		circles, err := a.contract.AllCircles(ctx)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, c := range circles {
			deadline := units.FormatTimestamp(c.Deadline)
			if !units.IsDeadlinePassed(c.Deadline, now) {
				deadline += " (" + units.FutureTimeString(c.Deadline, now) + ")"
			}
			report.Circles = append(report.Circles, circleLine{
				ID:          c.ID,
				Description: c.Description,
				Status:      models.StatusString(c.Status),
				Deadline:    deadline,
				Created:     units.TimeAgo(c.CreatedAt, now),
				PrizePool:   fmt.Sprintf("%g APT", c.PrizePool),
			})
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
