package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskmindhq/taskmind/internal/models"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, CGo-free).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the task database at path and applies
// schema migrations.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening task database %s: %w", path, err)
	}
	// The sqlite driver serializes writes; one connection avoids
	// SQLITE_BUSY on concurrent access.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			baseline_productivity_score REAL NOT NULL DEFAULT 50,
			baseline_distraction_score REAL NOT NULL DEFAULT 50,
			current_mood TEXT NOT NULL DEFAULT 'Neutral',
			current_energy_level REAL NOT NULL DEFAULT 5,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'Medium',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			deadline TEXT,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT,
			actual_time_spent REAL,
			productivity_score REAL,
			distraction_score REAL,
			energy_level REAL,
			mood TEXT,
			predicted_productivity_score REAL,
			predicted_distraction_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_completed ON tasks(user_id, completed)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_user_type ON logs(user_id, type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating task schema: %w", err)
		}
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, email,
		       baseline_productivity_score, baseline_distraction_score,
		       current_mood, current_energy_level, created_at, updated_at
		FROM users WHERE id = ?`, id)

	var u models.User
	var createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email,
		&u.BaselineProductivityScore, &u.BaselineDistractionScore,
		&u.CurrentMood, &u.CurrentEnergyLevel, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

const taskColumns = `
	id, user_id, title, description, type, priority,
	created_at, updated_at, deadline, completed, completed_at,
	actual_time_spent, productivity_score, distraction_score,
	energy_level, mood,
	predicted_productivity_score, predicted_distraction_score`

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task %s: %w", id, err)
	}
	return t, nil
}

// CompletedTasks returns the user's completed tasks, oldest first.
func (s *SQLiteStore) CompletedTasks(ctx context.Context, userID string, filter CompletedFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND completed = 1`
	if filter.RequireActualTime {
		query += ` AND actual_time_spent IS NOT NULL`
	}
	if filter.RequireProductivity {
		query += ` AND productivity_score IS NOT NULL`
	}
	query += ` ORDER BY created_at ASC`
	return s.queryTasks(ctx, query, userID)
}

// PendingTasks returns the user's incomplete tasks, oldest first.
func (s *SQLiteStore) PendingTasks(ctx context.Context, userID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND completed = 0 ORDER BY created_at ASC`
	return s.queryTasks(ctx, query, userID)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks returns the total number of tasks for the user.
func (s *SQLiteStore) CountTasks(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting tasks for %s: %w", userID, err)
	}
	return n, nil
}

// CountLogs returns the number of log entries of the given type.
func (s *SQLiteStore) CountLogs(ctx context.Context, userID string, logType models.LogType) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE user_id = ? AND type = ?`, userID, string(logType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting logs for %s: %w", userID, err)
	}
	return n, nil
}

// SetPredictedScores writes predicted scores back onto a task.
func (s *SQLiteStore) SetPredictedScores(ctx context.Context, taskID string, productivity, distraction float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET predicted_productivity_score = ?, predicted_distraction_score = ?, updated_at = ?
		WHERE id = ?`,
		productivity, distraction, time.Now().UTC().Format(time.RFC3339Nano), taskID)
	if err != nil {
		return fmt.Errorf("updating predicted scores for task %s: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating predicted scores for task %s: %w", taskID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- scanning helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*models.Task, error) {
	var t models.Task
	var createdAt, updatedAt string
	var deadline, completedAt, mood sql.NullString
	var completed int64
	var actual, prod, distr, energy, predProd, predDistr sql.NullFloat64

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Type, &t.Priority,
		&createdAt, &updatedAt, &deadline, &completed, &completedAt,
		&actual, &prod, &distr, &energy, &mood, &predProd, &predDistr)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	if deadline.Valid {
		t.Deadline = parseTime(deadline.String)
	}
	t.Completed = completed != 0
	if completedAt.Valid {
		t.CompletedAt = parseTime(completedAt.String)
	}
	t.ActualTimeSpent = nullFloat(actual)
	t.ProductivityScore = nullFloat(prod)
	t.DistractionScore = nullFloat(distr)
	t.EnergyLevel = nullFloat(energy)
	if mood.Valid {
		t.Mood = models.Mood(mood.String)
	}
	t.PredictedProductivityScore = nullFloat(predProd)
	t.PredictedDistractionScore = nullFloat(predDistr)
	return &t, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
