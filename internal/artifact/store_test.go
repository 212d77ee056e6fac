package artifact

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmindhq/taskmind/internal/encoding"
	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/predictor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "artifacts.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testArtifact(t *testing.T, userID string, watermark int64) Artifact {
	t.Helper()
	model, err := predictor.Fit([]string{features.FeatType, features.FeatTitleLength},
		[][]float64{{0, 3}, {1, 5}}, []float64{30, 60}, 1)
	require.NoError(t, err)

	return Artifact{
		UserID:     userID,
		Capability: "etc",
		Features:   []string{features.FeatType, features.FeatTitleLength},
		Models:     map[string]*predictor.Ridge{features.FeatActualTime: model},
		Encoders:   encoding.Set{features.FeatType: encoding.Fit([]string{"Work", "Study"})},
		Watermark:  watermark,
		TrainedAt:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	art := testArtifact(t, "u1", 2)
	require.NoError(t, art.Validate())

	noModels := art
	noModels.Models = nil
	assert.ErrorIs(t, noModels.Validate(), ErrInconsistent)

	noEncoder := art
	noEncoder.Encoders = encoding.Set{}
	assert.ErrorIs(t, noEncoder.Validate(), ErrInconsistent)
}

// Both implementations must behave identically for the core contract.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": newTestSQLiteStore(t),
		"mock":   NewMockStore(),
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			art := testArtifact(t, "u1", 2)
			require.NoError(t, st.Save(ctx, art))

			loaded, err := st.Load(ctx, "u1", "etc")
			require.NoError(t, err)
			assert.Equal(t, art.Watermark, loaded.Watermark)
			assert.Equal(t, art.Features, loaded.Features)
			assert.Equal(t, []string{"Work", "Study"}, loaded.Encoders[features.FeatType].Classes())

			// The restored model must predict identically.
			want, err := art.Models[features.FeatActualTime].Predict([]float64{1, 5})
			require.NoError(t, err)
			got, err := loaded.Models[features.FeatActualTime].Predict([]float64{1, 5})
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Load(context.Background(), "nobody", "etc")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_SaveRejectsInconsistentPair(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			art := testArtifact(t, "u1", 1)
			art.Encoders = encoding.Set{}
			err := st.Save(context.Background(), art)
			assert.ErrorIs(t, err, ErrInconsistent)
		})
	}
}

func TestStore_WatermarkNeverDecreases(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Save(ctx, testArtifact(t, "u1", 5)))
			require.NoError(t, st.Save(ctx, testArtifact(t, "u1", 3)))

			loaded, err := st.Load(ctx, "u1", "etc")
			require.NoError(t, err)
			assert.Equal(t, int64(5), loaded.Watermark)

			require.NoError(t, st.Save(ctx, testArtifact(t, "u1", 8)))
			loaded, err = st.Load(ctx, "u1", "etc")
			require.NoError(t, err)
			assert.Equal(t, int64(8), loaded.Watermark)
		})
	}
}

func TestStore_ExistsAndStats(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := st.Exists(ctx, "u1", "etc")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Save(ctx, testArtifact(t, "u1", 1)))
			require.NoError(t, st.Save(ctx, testArtifact(t, "u2", 1)))

			ok, err = st.Exists(ctx, "u1", "etc")
			require.NoError(t, err)
			assert.True(t, ok)

			stats, err := st.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), stats.TotalArtifacts)
			assert.Equal(t, int64(2), stats.ByCapability["etc"])
		})
	}
}

func TestSQLiteStore_CorruptPayloadIsInconsistent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, testArtifact(t, "u1", 1)))

	_, err := st.db.Exec(`UPDATE artifacts SET models = ? WHERE user_id = ?`, `{not json`, "u1")
	require.NoError(t, err)

	_, err = st.Load(ctx, "u1", "etc")
	assert.ErrorIs(t, err, ErrInconsistent)
}
