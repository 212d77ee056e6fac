package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskmindhq/taskmind/internal/encoding"
	"github.com/taskmindhq/taskmind/internal/predictor"
)

// SQLiteStore implements Store on a process-local SQLite file. One row per
// (user, capability); Save replaces the whole row in a single statement, so a
// concurrent Load never observes a model without its encoders.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the artifact database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			user_id TEXT NOT NULL,
			capability TEXT NOT NULL,
			features TEXT NOT NULL,
			models BLOB NOT NULL,
			encoders BLOB NOT NULL,
			watermark INTEGER NOT NULL DEFAULT 0,
			fingerprint TEXT NOT NULL DEFAULT '',
			trained_at TEXT NOT NULL,
			PRIMARY KEY (user_id, capability)
		)`)
	if err != nil {
		return fmt.Errorf("migrating artifact schema: %w", err)
	}
	return nil
}

// Save persists the artifact. The upsert keeps the larger of the stored and
// incoming watermark so the count never moves backwards.
func (s *SQLiteStore) Save(ctx context.Context, art Artifact) error {
	if err := art.Validate(); err != nil {
		return fmt.Errorf("refusing to save artifact: %w", err)
	}

	featuresJSON, err := json.Marshal(art.Features)
	if err != nil {
		return fmt.Errorf("encoding feature list: %w", err)
	}
	modelsJSON, err := json.Marshal(art.Models)
	if err != nil {
		return fmt.Errorf("encoding models: %w", err)
	}
	encodersJSON, err := json.Marshal(art.Encoders)
	if err != nil {
		return fmt.Errorf("encoding encoder set: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (user_id, capability, features, models, encoders, watermark, fingerprint, trained_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, capability) DO UPDATE SET
			features    = excluded.features,
			models      = excluded.models,
			encoders    = excluded.encoders,
			watermark   = MAX(artifacts.watermark, excluded.watermark),
			fingerprint = excluded.fingerprint,
			trained_at  = excluded.trained_at`,
		art.UserID, art.Capability, string(featuresJSON), modelsJSON, encodersJSON,
		art.Watermark, art.Fingerprint, art.TrainedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving artifact %s/%s: %w", art.UserID, art.Capability, err)
	}

	s.logger.Debug("artifact saved",
		"user", art.UserID, "capability", art.Capability, "watermark", art.Watermark)
	return nil
}

// Load retrieves the artifact for the pair, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, userID, capability string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT features, models, encoders, watermark, fingerprint, trained_at
		FROM artifacts WHERE user_id = ? AND capability = ?`, userID, capability)

	var featuresJSON, trainedAt string
	var modelsJSON, encodersJSON []byte
	art := Artifact{UserID: userID, Capability: capability}
	err := row.Scan(&featuresJSON, &modelsJSON, &encodersJSON, &art.Watermark, &art.Fingerprint, &trainedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artifact %s/%s: %w", userID, capability, err)
	}

	if err := json.Unmarshal([]byte(featuresJSON), &art.Features); err != nil {
		return nil, fmt.Errorf("%w: corrupt feature list for %s/%s: %v", ErrInconsistent, userID, capability, err)
	}
	art.Models = make(map[string]*predictor.Ridge)
	if err := json.Unmarshal(modelsJSON, &art.Models); err != nil {
		return nil, fmt.Errorf("%w: corrupt models for %s/%s: %v", ErrInconsistent, userID, capability, err)
	}
	art.Encoders = make(encoding.Set)
	if err := json.Unmarshal(encodersJSON, &art.Encoders); err != nil {
		return nil, fmt.Errorf("%w: corrupt encoders for %s/%s: %v", ErrInconsistent, userID, capability, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, trainedAt); err == nil {
		art.TrainedAt = t
	}

	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// Exists reports whether an artifact is stored for the pair.
func (s *SQLiteStore) Exists(ctx context.Context, userID, capability string) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artifacts WHERE user_id = ? AND capability = ?`,
		userID, capability).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking artifact %s/%s: %w", userID, capability, err)
	}
	return n > 0, nil
}

// Stats returns collection statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByCapability: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT capability, COUNT(*) FROM artifacts GROUP BY capability`)
	if err != nil {
		return nil, fmt.Errorf("querying artifact stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var capability string
		var n int64
		if err := rows.Scan(&capability, &n); err != nil {
			return nil, fmt.Errorf("scanning artifact stats: %w", err)
		}
		stats.ByCapability[capability] = n
		stats.TotalArtifacts += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifact stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
