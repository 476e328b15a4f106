package main

import (
	"fmt"
	"os"

	"github.com/aretw0/crosscall/internal/cli"
	"github.com/aretw0/crosscall/internal/presentation/graph"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <method> [args]",
	Short: "Call an orchestrator method and print the final outcome",
	Long: `Deploys the contracts in-process, initializes the orchestrator and submits
one transaction to it. The command waits for every scheduled call and the
continuation before printing.

Args are a JSON object, for example:

  crosscall call change_greeting '{"new_greeting":"Howdy"}'
  crosscall call multiple_contracts

Output is colored text on a terminal and JSON otherwise.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, debug, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		signer, _ := cmd.Flags().GetString("signer")
		jsonOut, _ := cmd.Flags().GetBool("json")
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		method := args[0]
		callArgs := domain.NoArgs
		if len(args) > 1 {
			callArgs = args[1]
		}

		rt, err := cli.Build(cmd.Context(), cfg, logger, cli.Options{Debug: debug})
		if err != nil {
			return err
		}
		defer rt.Close()

		outcome, receipt, callErr := rt.Deployment.Call(cmd.Context(), domain.AccountID(signer), method, callArgs)

		if mermaid && receipt != nil {
			fmt.Print(graph.GenerateSequence(receipt.Trace()))
			return callErr
		}

		printer := cli.NewPrinter(os.Stdout, jsonOut)
		if err := printer.Print(cli.NewResult(method, outcome, receipt, callErr)); err != nil {
			return err
		}
		return callErr
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().String("signer", "alice.test", "Account signing the transaction")
	callCmd.Flags().Bool("json", false, "Always print JSON")
	callCmd.Flags().Bool("mermaid", false, "Print the call trace as a Mermaid sequence diagram")
}
