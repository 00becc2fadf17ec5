package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PredictionRepository interface using SQLite.
//
// Insertion order is preserved through the autoincrement seq column; the
// stable prediction ID is a separate unique text column so records are never
// addressed by position.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_dash.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		asset TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		initial_price REAL NOT NULL,
		predicted_change REAL NOT NULL,
		target_price REAL NOT NULL,
		signal TEXT NOT NULL,
		sentiment INTEGER NOT NULL,
		analysis TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions (created_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Append adds a prediction record. It never deduplicates on content; the
// unique ID is generated upstream.
func (r *Repository) Append(ctx context.Context, pred *domain.Prediction) error {
	const query = `
	INSERT INTO predictions (id, asset, created_at, initial_price, predicted_change,
	                         target_price, signal, sentiment, analysis)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		pred.ID, pred.Asset, pred.CreatedAt.UnixMilli(), pred.InitialPrice, pred.PredictedChangePercent,
		pred.TargetPrice, pred.Signal, pred.SentimentScore, pred.AnalysisText)
	if err != nil {
		return fmt.Errorf("failed to insert prediction %s: %w", pred.ID, err)
	}
	r.logger.Debug(ctx, "Prediction stored", map[string]interface{}{"predictionID": pred.ID, "asset": pred.Asset})
	return nil
}

// List returns all stored predictions in insertion order.
func (r *Repository) List(ctx context.Context) ([]*domain.Prediction, error) {
	const query = `
	SELECT id, asset, created_at, initial_price, predicted_change,
	       target_price, signal, sentiment, analysis
	FROM predictions ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	preds := make([]*domain.Prediction, 0)
	for rows.Next() {
		pred, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction during List: %w", err)
		}
		preds = append(preds, pred)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return preds, nil
}

// DeleteByIDs removes exactly the given records in one transaction. IDs that
// no longer exist are ignored: the prune step must only ever touch the
// records it decided to drop, never rows written by concurrent callers.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin DeleteByIDs transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.Repeat("?,", len(ids))
	query := fmt.Sprintf(`DELETE FROM predictions WHERE id IN (%s)`, placeholders[:len(placeholders)-1])

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete predictions by IDs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit DeleteByIDs transaction: %w", err)
	}
	r.logger.Debug(ctx, "Predictions deleted", map[string]interface{}{"count": len(ids)})
	return nil
}

// DeleteByID removes exactly the record with the given ID.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prediction %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for prediction %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("prediction %s: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Prediction deleted", map[string]interface{}{"predictionID": id})
	return nil
}

// Clear empties the collection.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to clear predictions: %w", err)
	}
	r.logger.Info(ctx, "Prediction history cleared")
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPrediction scans a row into a domain.Prediction struct.
func scanPrediction(s scanner) (*domain.Prediction, error) {
	p := &domain.Prediction{}
	var createdAtMs int64
	err := s.Scan(
		&p.ID, &p.Asset, &createdAtMs, &p.InitialPrice, &p.PredictedChangePercent,
		&p.TargetPrice, &p.Signal, &p.SentimentScore, &p.AnalysisText)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	p.CreatedAt = time.UnixMilli(createdAtMs)
	return p, nil
}
