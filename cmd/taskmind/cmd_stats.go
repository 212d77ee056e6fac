package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show trained model artifact statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			artifacts, err := newArtifactStore(logger)
			if err != nil {
				return fmt.Errorf("stats: opening artifact store: %w", err)
			}
			defer func() { _ = artifacts.Close() }()

			stats, err := artifacts.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Total artifacts: %d\n\n", stats.TotalArtifacts)

			fmt.Println("By capability:")
			for c, n := range stats.ByCapability {
				fmt.Printf("  %-12s %d\n", c, n)
			}

			return nil
		},
	}
}
