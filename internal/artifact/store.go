// Package artifact persists trained models together with their encoder sets.
// A model and its encoders are one unit: they are written in a single
// replacement and a reader always observes both or neither.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmindhq/taskmind/internal/encoding"
	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/predictor"
)

var (
	// ErrNotFound is returned by Load when no artifact exists for the
	// (user, capability) pair.
	ErrNotFound = errors.New("artifact not found")

	// ErrInconsistent is returned when a stored artifact carries a model
	// without its matching encoders or vice versa. Fatal for the request,
	// not for the process.
	ErrInconsistent = errors.New("artifact model/encoder pairing is inconsistent")
)

// Artifact is the persisted unit for one (user, capability): the trained
// model(s), the encoder set they were fit with, the declared feature order,
// and the training-data watermark. Immutable once written; replaced wholesale
// on retrain.
type Artifact struct {
	UserID     string `json:"user_id"`
	Capability string `json:"capability"`

	// Features is the exact ordered feature-name list the models were fit on.
	Features []string `json:"features"`

	// Models holds one trained model per target label. Capabilities with
	// co-trained targets (productivity + distraction) share one encoder set
	// and one feature matrix.
	Models map[string]*predictor.Ridge `json:"models"`

	Encoders encoding.Set `json:"encoders"`

	// Watermark is the eligible training-record count at training time.
	// Monotonically non-decreasing for a given (user, capability).
	Watermark int64 `json:"watermark"`

	// Fingerprint is the content hash of the contributing records, used by
	// the fingerprint freshness strategy. Empty under the watermark strategy.
	Fingerprint string `json:"fingerprint,omitempty"`

	TrainedAt time.Time `json:"trained_at"`
}

// Validate checks the model/encoder pairing invariant: every categorical
// feature referenced by the declared feature list must have an encoder, and
// at least one model must be present.
func (a *Artifact) Validate() error {
	if len(a.Models) == 0 {
		return fmt.Errorf("%w: no models for %s/%s", ErrInconsistent, a.UserID, a.Capability)
	}
	for _, name := range a.Features {
		if !features.IsCategorical(name) {
			continue
		}
		enc, ok := a.Encoders[name]
		if !ok || enc == nil || len(enc.Classes()) == 0 {
			return fmt.Errorf("%w: missing encoder for feature %q", ErrInconsistent, name)
		}
	}
	return nil
}

// Stats summarizes the artifact collection.
type Stats struct {
	TotalArtifacts int64            `json:"total_artifacts"`
	ByCapability   map[string]int64 `json:"by_capability"`
}

// Store defines the interface for artifact persistence. Storage is keyed by
// (user ID, capability name); there is no cross-user sharing.
type Store interface {
	// Save persists the artifact, replacing any previous one for the same
	// key. Atomic from the point of view of concurrent Load calls. The
	// stored watermark never decreases.
	Save(ctx context.Context, art Artifact) error

	// Load retrieves the artifact for the pair, or ErrNotFound. A stored
	// artifact that fails Validate is reported as ErrInconsistent.
	Load(ctx context.Context, userID, capability string) (*Artifact, error)

	// Exists reports whether an artifact is stored for the pair.
	Exists(ctx context.Context, userID, capability string) (bool, error)

	// Stats returns collection statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleans up resources.
	Close() error
}
