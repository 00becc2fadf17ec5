package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "signal-dash-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func testPrediction(id, asset string, createdAt time.Time) *domain.Prediction {
	return &domain.Prediction{
		ID:                     id,
		Asset:                  asset,
		CreatedAt:              createdAt,
		InitialPrice:           50000,
		PredictedChangePercent: 5,
		TargetPrice:            52500,
		Signal:                 "BUY",
		SentimentScore:         2,
		AnalysisText:           "test rationale",
	}
}

func TestRepository_AppendAndList(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", createdAt)))
	require.NoError(t, repo.Append(ctx, testPrediction("p2", "ethereum", createdAt.Add(time.Hour))))
	require.NoError(t, repo.Append(ctx, testPrediction("p3", "bitcoin", createdAt.Add(2*time.Hour))))

	preds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 3)

	// Insertion order, not creation time order.
	assert.Equal(t, "p1", preds[0].ID)
	assert.Equal(t, "p2", preds[1].ID)
	assert.Equal(t, "p3", preds[2].ID)

	// Round-trip fidelity of the full record.
	got := preds[0]
	assert.Equal(t, "bitcoin", got.Asset)
	assert.True(t, createdAt.Equal(got.CreatedAt))
	assert.Equal(t, 50000.0, got.InitialPrice)
	assert.Equal(t, 5.0, got.PredictedChangePercent)
	assert.Equal(t, 52500.0, got.TargetPrice)
	assert.Equal(t, "BUY", got.Signal)
	assert.Equal(t, 2, got.SentimentScore)
	assert.Equal(t, "test rationale", got.AnalysisText)
}

func TestRepository_List_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	preds, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestRepository_DeleteByIDs(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", createdAt)))
	require.NoError(t, repo.Append(ctx, testPrediction("p2", "ethereum", createdAt)))
	require.NoError(t, repo.Append(ctx, testPrediction("p3", "solana", createdAt)))

	// Remove a subset; the survivors keep their insertion order.
	require.NoError(t, repo.DeleteByIDs(ctx, []string{"p2"}))

	preds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "p1", preds[0].ID)
	assert.Equal(t, "p3", preds[1].ID)
}

func TestRepository_DeleteByIDs_UnknownIDsIgnored(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", time.Now())))

	// An ID deleted by another writer in the meantime is not an error.
	require.NoError(t, repo.DeleteByIDs(ctx, []string{"p1", "already-gone"}))

	preds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestRepository_DeleteByIDs_EmptyIsNoOp(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", time.Now())))
	require.NoError(t, repo.DeleteByIDs(ctx, nil))

	preds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	createdAt := time.Now().UTC()
	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", createdAt)))
	require.NoError(t, repo.Append(ctx, testPrediction("p2", "ethereum", createdAt)))
	require.NoError(t, repo.Append(ctx, testPrediction("p3", "solana", createdAt)))

	require.NoError(t, repo.DeleteByID(ctx, "p2"))

	// Remaining records keep their relative order.
	preds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "p1", preds[0].ID)
	assert.Equal(t, "p3", preds[1].ID)
}

func TestRepository_DeleteByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.DeleteByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_Clear(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, testPrediction("p1", "bitcoin", time.Now())))
	require.NoError(t, repo.Append(ctx, testPrediction("p2", "ethereum", time.Now())))

	require.NoError(t, repo.Clear(ctx))

	preds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, preds)

	// Clearing an already-empty store is fine.
	require.NoError(t, repo.Clear(ctx))
}
