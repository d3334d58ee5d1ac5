package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// syncCommands runs one orchestrator batch in the foreground and prints its result.
func syncCommands(app *agrionInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "run one orchestrator batch now",
	}

	cmd.AddCommand(syncCommand("waste", "process unprocessed waste into energy and credits", func(ctx context.Context) (interface{}, error) {
		return app.agrion.CircularEconomySync(ctx)
	}))
	cmd.AddCommand(syncCommand("quarantine", "re-analyze active outbreaks and trace-lock exposed batches", func(ctx context.Context) (interface{}, error) {
		return app.agrion.QuarantineScan(ctx)
	}))
	cmd.AddCommand(syncCommand("hedging", "run the forward contract hedging sweep", func(ctx context.Context) (interface{}, error) {
		return app.agrion.FuturesHedgingSync(ctx)
	}))

	return cmd
}

func syncCommand(use, short string, run func(ctx context.Context) (interface{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			result, err := run(cmd.Context())
			if err != nil {
				log.Fatalf("%s sync failed: %v", use, err)
			}

			data, err := json.MarshalIndent(result, "", "    ")
			if err != nil {
				log.Fatalf("Error printing result: %v\n", err)
			}
			fmt.Println(string(data))
		},
	}
}
