package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrDisabled is returned by a nil *DB, i.e. when persistence is not configured
var ErrDisabled = errors.New("persistence disabled")

// DefaultRecentLimit caps RecentResults when the caller passes no limit
const DefaultRecentLimit = 50

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters.
// DSN wins over the individual fields when set.
type ConnectionParams struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString renders the lib/pq connection string
func (p ConnectionParams) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// PriceLog is a persisted ResultRecord
type PriceLog struct {
	ID int64 `json:"id"`
	model.ResultRecord
}

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.ConnString())
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Create tables if they don't exist
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{DB: db, logger: log.With().Str("component", "database").Logger()}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS price_logs (
			id BIGSERIAL PRIMARY KEY,
			ticker TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			alert SMALLINT NOT NULL,
			delta_oc DOUBLE PRECISION,
			delta_hl DOUBLE PRECISION,
			static_oc_threshold DOUBLE PRECISION,
			static_hl_threshold DOUBLE PRECISION,
			dynamic_window INTEGER,
			std_multiplier DOUBLE PRECISION
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS price_logs_ticker_ts_idx
		ON price_logs (ticker, timestamp DESC)
	`)
	return err
}

// LogPriceResult appends one evaluation result
func (db *DB) LogPriceResult(ctx context.Context, rec model.ResultRecord) error {
	if db == nil {
		return ErrDisabled
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO price_logs (
			ticker, timestamp, alert, delta_oc, delta_hl,
			static_oc_threshold, static_hl_threshold, dynamic_window, std_multiplier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.Ticker,
		rec.Timestamp.UTC(),
		rec.AlertFlag(),
		nullFloat(rec.Metrics.DeltaOC),
		nullFloat(rec.Metrics.DeltaHL),
		rec.Details.StaticOC,
		rec.Details.StaticHL,
		rec.Details.DynamicWindow,
		rec.Details.StdMultiplier,
	)
	if err != nil {
		return fmt.Errorf("insert price log: %w", err)
	}

	db.logger.Debug().Str("ticker", rec.Ticker).Bool("alert", rec.Alert).Msg("Logged price result")
	return nil
}

// RecentResults returns the newest rows for ticker, newest first.
// An empty ticker returns rows for all tickers.
func (db *DB) RecentResults(ctx context.Context, ticker string, limit int) ([]PriceLog, error) {
	if db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			id, ticker, timestamp, alert, delta_oc, delta_hl,
			static_oc_threshold, static_hl_threshold, dynamic_window, std_multiplier
		FROM price_logs
		WHERE $1 = '' OR ticker = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query price logs: %w", err)
	}
	defer rows.Close()

	var logs []PriceLog
	for rows.Next() {
		var (
			pl      PriceLog
			ts      time.Time
			alert   int
			oc, hl  sql.NullFloat64
			details model.ThresholdConfig
		)
		if err := rows.Scan(
			&pl.ID, &pl.Ticker, &ts, &alert, &oc, &hl,
			&details.StaticOC, &details.StaticHL, &details.DynamicWindow, &details.StdMultiplier,
		); err != nil {
			return nil, fmt.Errorf("scan price log: %w", err)
		}

		pl.Timestamp = ts.UTC()
		pl.Alert = alert != 0
		pl.Metrics = model.Metrics{DeltaOC: floatPtr(oc), DeltaHL: floatPtr(hl)}
		pl.Details = details
		logs = append(logs, pl)
	}

	return logs, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
