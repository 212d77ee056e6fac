// Package freshness decides whether a stored artifact still reflects a
// user's training data. Two interchangeable strategies exist; each capability
// picks one deliberately.
package freshness

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/models"
)

// Strategy selects how staleness is detected.
type Strategy string

const (
	// StrategyWatermark retrains iff the eligible row count exceeds the
	// stored watermark. Equal counts are treated as fresh even if the
	// underlying values changed; this is a deliberate cheap approximation.
	StrategyWatermark Strategy = "watermark"

	// StrategyFingerprint retrains iff the content hash of the contributing
	// records differs from the stored fingerprint.
	StrategyFingerprint Strategy = "fingerprint"
)

// Fingerprint hashes (id, updatedAt) for every contributing record. Any
// insert, delete, or update to a completed task changes the result.
func Fingerprint(tasks []models.Task) string {
	h := sha256.New()
	for _, t := range tasks {
		h.Write([]byte(t.ID))
		h.Write([]byte(t.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Detector answers the staleness question against the artifact store.
type Detector struct {
	artifacts artifact.Store
	logger    *slog.Logger
}

// NewDetector creates a detector backed by the given artifact store.
func NewDetector(artifacts artifact.Store, logger *slog.Logger) *Detector {
	return &Detector{artifacts: artifacts, logger: logger}
}

// NeedsTraining reports whether the (user, capability) artifact must be
// (re)trained given the current eligible records. A missing artifact always
// short-circuits to true regardless of counts or hashes.
func (d *Detector) NeedsTraining(ctx context.Context, userID, capability string, strategy Strategy, eligible []models.Task) (bool, error) {
	art, err := d.artifacts.Load(ctx, userID, capability)
	if errors.Is(err, artifact.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		// Includes artifact.ErrInconsistent: fatal for the request, the
		// caller surfaces it.
		return false, fmt.Errorf("loading artifact for freshness check: %w", err)
	}

	switch strategy {
	case StrategyWatermark:
		current := int64(len(eligible))
		if current > art.Watermark {
			d.logger.Debug("artifact stale by watermark",
				"user", userID, "capability", capability,
				"rows", current, "watermark", art.Watermark)
			return true, nil
		}
		return false, nil

	case StrategyFingerprint:
		current := Fingerprint(eligible)
		if art.Fingerprint == "" || art.Fingerprint != current {
			d.logger.Debug("artifact stale by fingerprint",
				"user", userID, "capability", capability)
			return true, nil
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown freshness strategy %q", strategy)
	}
}
