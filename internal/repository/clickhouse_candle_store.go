package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	pkgch "TradeScore/pkg/clickhouse"
	applogger "TradeScore/pkg/logger"
)

// CHCandleStore serves candles from a ClickHouse table keyed by (symbol, timeframe, ts).
type CHCandleStore struct {
	db       *sql.DB
	table    string
	lookback int
	l        *applogger.Logger
}

var _ domrepo.IndicatorProvider = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, table string, lookback int, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHCandleStore{db: ch.DB(), table: ch.Database() + "." + table, lookback: lookback, l: l}
}

// CandleSchema is the DDL for the candle table.
func CandleSchema(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol    LowCardinality(String),
			timeframe LowCardinality(String),
			ts        DateTime64(3, 'UTC'),
			open      Float64,
			high      Float64,
			low       Float64,
			close     Float64,
			volume    Float64
		) ENGINE = ReplacingMergeTree
		ORDER BY (symbol, timeframe, ts)`, database, table),
	}
}

const latestCandlesQuery = `
	SELECT ts, open, high, low, close, volume
	FROM %s
	WHERE symbol = ? AND timeframe = ? AND ts <= ?
	ORDER BY ts DESC
	LIMIT ?`

// FetchCandles returns up to count bars at or before anchor, oldest first.
func (s *CHCandleStore) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, anchor time.Time, count int) (models.CandleSeries, error) {
	start := time.Now()
	if count <= 0 {
		count = s.lookback
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(latestCandlesQuery, s.table), symbol, string(tf), anchor.UTC(), count)
	if err != nil {
		s.l.Error("clickhouse candles query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err))
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}
	defer rows.Close()

	desc := make([]models.Candle, 0, count)
	for rows.Next() {
		c := models.Candle{Symbol: symbol, Timeframe: tf}
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, &models.DataUnavailableError{Symbol: symbol, Err: fmt.Errorf("scan candle: %w", err)}
		}
		desc = append(desc, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}

	series, err := models.NewCandleSeries(desc, count)
	if err != nil {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: err}
	}
	if series.Empty() {
		return nil, &models.DataUnavailableError{Symbol: symbol, Err: fmt.Errorf("no %s candles before %s", tf, anchor.UTC().Format(time.RFC3339))}
	}

	s.l.Debug("clickhouse candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)))
	return series, nil
}

// InsertCandles upserts a batch; the ReplacingMergeTree collapses re-sent bars.
func (s *CHCandleStore) InsertCandles(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, timeframe, ts, open, high, low, close, volume)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Symbol, string(c.Timeframe), c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append candle: %w", err)
		}
	}
	return tx.Commit()
}
