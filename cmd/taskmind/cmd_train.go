package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmindhq/taskmind/internal/etc"
	"github.com/taskmindhq/taskmind/internal/recommend"
	"github.com/taskmindhq/taskmind/internal/score"
	"github.com/taskmindhq/taskmind/internal/training"
)

// capabilitySpecs maps CLI capability names to their training specs.
func capabilitySpecs() map[string]training.Spec {
	return map[string]training.Spec{
		etc.Capability:       etc.Spec(),
		score.Capability:     score.Spec(),
		recommend.Capability: recommend.Spec(),
	}
}

func trainCmd() *cobra.Command {
	var userID string
	var capability string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a user's models immediately instead of waiting for a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			specs := capabilitySpecs()
			var selected []training.Spec
			if capability == "all" {
				for _, spec := range specs {
					selected = append(selected, spec)
				}
			} else {
				spec, ok := specs[capability]
				if !ok {
					return fmt.Errorf("train: unknown capability %q (want etc, score, recommend, or all)", capability)
				}
				selected = []training.Spec{spec}
			}

			a, err := newApp(logger)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}
			defer a.Close()

			now := time.Now().UTC()
			for _, spec := range selected {
				art, err := a.trainer.Train(ctx, userID, spec, now)
				if err != nil {
					return fmt.Errorf("train: %s/%s: %w", userID, spec.Capability, err)
				}
				fmt.Printf("%-10s trained: watermark=%d targets=%d\n",
					spec.Capability, art.Watermark, len(art.Models))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to train models for (required)")
	cmd.Flags().StringVar(&capability, "capability", "all", "capability to train: etc, score, recommend, or all")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
