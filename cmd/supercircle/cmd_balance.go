package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/supercircle/internal/aptos"
)

var (
	balanceWatch    bool
	balanceInterval time.Duration
)

// balanceCmd prints the APT balance of an account
var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the APT balance of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

// fundCmd mints test coins on devnet/testnet
var fundCmd = &cobra.Command{
	Use:   "fund <address> <apt>",
	Short: "Fund an account from the devnet/testnet faucet",
	Args:  cobra.ExactArgs(2),
	RunE:  runFund,
}

func init() {
	balanceCmd.Flags().BoolVar(&balanceWatch, "watch", false, "Keep polling until interrupted")
	balanceCmd.Flags().DurationVar(&balanceInterval, "interval", 10*time.Second, "Poll interval with --watch")
	rootCmd.AddCommand(balanceCmd, fundCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	address := args[0]
	if _, err := aptos.NormalizeAddress(address); err != nil {
		return err
	}

	a := newApp(config, log)
	defer a.Close()

	if !balanceWatch {
		balance, err := a.wallet.Balance(cmd.Context(), address)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %g APT\n", address, balance)
		return nil
	}

	updates, err := a.wallet.Watch(cmd.Context(), address, balanceInterval)
	if err != nil {
		return err
	}
	for update := range updates {
		fmt.Printf("%s %s: %g APT\n", update.Timestamp.Format(time.RFC3339), update.Address, update.Balance)
	}
	return nil
}

func runFund(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	address := args[0]
	apt, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	a := newApp(config, log)
	defer a.Close()

	hashes, err := a.wallet.Fund(cmd.Context(), address, apt)
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		fmt.Println(hash)
	}
	return nil
}
