package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initDryRun bool

// initCmd submits the module's init entry function
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the contract with the deployer key",
	Long: `Submits <module>::init signed by DEPLOYER_PRIVATE_KEY unless the CircleBook
already exists. With --dry-run the transaction is only simulated.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "Simulate instead of submitting")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a := newApp(config, log)
	defer a.Close()

	// the deployer key signs init; the judge address check does not apply
	config.Judge.SignerAddress = ""
	deployer, err := a.signer()
	if err != nil {
		return err
	}
	log.Info("using deployer", "address", deployer.Address())

	if initDryRun {
		txns, err := a.contract.Simulate(ctx, deployer, a.contract.Builder().InitPayload())
		if err != nil {
			return fmt.Errorf("simulate init: %w", err)
		}
		for _, txn := range txns {
			fmt.Printf("simulated: success=%t vm_status=%s gas_used=%s\n", txn.Success, txn.VMStatus, txn.GasUsed)
		}
		return nil
	}

	txn, err := a.contract.Initialize(ctx, deployer)
	if err != nil {
		return err
	}
	if txn == nil {
		fmt.Println("Contract already initialized")
		return nil
	}
	fmt.Printf("Contract initialized: %s\n", txn.Hash)
	return nil
}
