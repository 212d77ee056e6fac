package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that both databases open and answer queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check the task dataset
			tasks, err := newTaskStore(logger)
			if err != nil {
				fmt.Printf("Task DB: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = tasks.Close() }()
				if _, err := tasks.CountTasks(ctx, "healthcheck"); err != nil {
					fmt.Printf("Task DB: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Println("Task DB: OK")
				}
			}

			// Check the artifact store
			artifacts, err := newArtifactStore(logger)
			if err != nil {
				fmt.Printf("Artifact DB: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = artifacts.Close() }()
				if _, err := artifacts.Stats(ctx); err != nil {
					fmt.Printf("Artifact DB: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Println("Artifact DB: OK")
				}
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
