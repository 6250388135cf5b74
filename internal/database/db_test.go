package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and connects through New,
// which also creates the schema
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := New(ctx, ConnectionParams{DSN: dsn})
	require.NoError(t, err, "failed to connect")

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func ptr[T any](v T) *T {
	return &v
}

func TestLogAndReadBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	alert := model.ResultRecord{
		Ticker:    "AAPL",
		Timestamp: base,
		Alert:     true,
		Metrics:   model.Metrics{DeltaOC: ptr(2.5), DeltaHL: ptr(3.1)},
		Details:   model.DefaultThresholds(),
	}
	unusable := model.ResultRecord{
		Ticker:    "AAPL",
		Timestamp: base.Add(5 * time.Minute),
		Details:   model.DefaultThresholds(),
	}
	other := model.ResultRecord{
		Ticker:    "MSFT",
		Timestamp: base.Add(10 * time.Minute),
		Metrics:   model.Metrics{DeltaOC: ptr(0.1), DeltaHL: ptr(0.2)},
		Details:   model.DefaultThresholds(),
	}

	for _, rec := range []model.ResultRecord{alert, unusable, other} {
		require.NoError(t, db.LogPriceResult(ctx, rec))
	}

	logs, err := db.RecentResults(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// newest first
	assert.True(t, logs[0].Timestamp.Equal(unusable.Timestamp))
	assert.False(t, logs[0].Alert)
	assert.Nil(t, logs[0].Metrics.DeltaOC)
	assert.Nil(t, logs[0].Metrics.DeltaHL)

	assert.True(t, logs[1].Alert)
	require.NotNil(t, logs[1].Metrics.DeltaOC)
	assert.Equal(t, 2.5, *logs[1].Metrics.DeltaOC)
	assert.Equal(t, model.DefaultThresholds(), logs[1].Details)
	assert.Equal(t, time.UTC, logs[1].Timestamp.Location())

	all, err := db.RecentResults(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "MSFT", all[0].Ticker)
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, createTables(context.Background(), db.DB))
}

func TestNilDBIsDisabled(t *testing.T) {
	var db *DB
	err := db.LogPriceResult(context.Background(), model.ResultRecord{Ticker: "AAPL"})
	assert.True(t, errors.Is(err, ErrDisabled))

	_, err = db.RecentResults(context.Background(), "AAPL", 1)
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestConnString(t *testing.T) {
	p := ConnectionParams{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "pw", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pw sslmode=disable", p.ConnString())

	p.DSN = "postgres://u:p@db/pw"
	assert.Equal(t, "postgres://u:p@db/pw", p.ConnString())
}
