package repository

import (
	"context"
	"database/sql"
	"fmt"

	"message-triage/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryDSN keeps the ledger in process memory only
const MemoryDSN = ":memory:"

// FeedbackRepository is the append-only feedback ledger
type FeedbackRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFeedbackRepository opens the ledger database. The DSN defaults to an
// in-memory database, which disappears with the process.
func NewFeedbackRepository(dsn string, logger *zap.Logger) (*FeedbackRepository, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	repo := &FeedbackRepository{
		db:     db,
		logger: logger,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Feedback ledger initialized", zap.String("dsn", dsn))

	return repo, nil
}

func (r *FeedbackRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		message TEXT NOT NULL,
		predicted_label TEXT NOT NULL,
		user_label TEXT NOT NULL,
		language TEXT NOT NULL,
		score INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_user_label ON feedback(user_label);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Append adds an entry to the head of the ledger
func (r *FeedbackRepository) Append(ctx context.Context, e models.FeedbackEntry) error {
	query := `
		INSERT INTO feedback (id, timestamp, message, predicted_label, user_label, language, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Timestamp,
		e.Message,
		string(e.PredictedLabel),
		string(e.UserLabel),
		e.Language,
		e.Score,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// List returns every entry, most recent first
func (r *FeedbackRepository) List(ctx context.Context) ([]models.FeedbackEntry, error) {
	query := `
		SELECT id, timestamp, message, predicted_label, user_label, language, score
		FROM feedback
		ORDER BY seq DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	entries := []models.FeedbackEntry{}
	for rows.Next() {
		var e models.FeedbackEntry
		var predicted, user string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Message, &predicted, &user, &e.Language, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		e.PredictedLabel = models.Label(predicted)
		e.UserLabel = models.Label(user)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return entries, nil
}

// Count returns the number of ledger entries
func (r *FeedbackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

// Stats returns corrections grouped by predicted and user label
func (r *FeedbackRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats["total"] = total

	query := `
		SELECT predicted_label, user_label, COUNT(*) AS count
		FROM feedback
		GROUP BY predicted_label, user_label
		ORDER BY predicted_label, user_label
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback stats: %w", err)
	}
	defer rows.Close()

	byPair := make(map[string]int)
	disagreements := 0
	for rows.Next() {
		var predicted, user string
		var count int
		if err := rows.Scan(&predicted, &user, &count); err != nil {
			return nil, fmt.Errorf("failed to scan feedback stats: %w", err)
		}
		byPair[predicted+"->"+user] = count
		if predicted != user {
			disagreements += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback stats: %w", err)
	}

	stats["by_label"] = byPair
	stats["disagreements"] = disagreements
	return stats, nil
}

// Close closes the database connection
func (r *FeedbackRepository) Close() error {
	return r.db.Close()
}
