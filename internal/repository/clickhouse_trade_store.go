package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	pkgch "TradeScore/pkg/clickhouse"
)

// CHTradeStore is the ClickHouse-backed trade journal.
type CHTradeStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
}

var _ domrepo.TradeStore = (*CHTradeStore)(nil)

func NewCHTradeStore(client *pkgch.Client, table string) *CHTradeStore {
	return &CHTradeStore{client: client, db: client.DB(), table: client.Database() + "." + table}
}

const tradeColumns = `id, symbol, side, strategy, entry_time, entry_price, quantity, exit_time, exit_price,
	stop_loss, status, pnl, memo, strategy_score, forbidden_penalty, final_score, signal, violations,
	indicators, created_at`

func (s *CHTradeStore) Init(ctx context.Context) error {
	db := s.client.Database()
	return s.client.InitSchema(ctx, []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id                String,
			symbol            LowCardinality(String),
			side              LowCardinality(String),
			strategy          LowCardinality(String),
			entry_time        DateTime64(3, 'UTC'),
			entry_price       Float64,
			quantity          Float64,
			exit_time         Nullable(DateTime64(3, 'UTC')),
			exit_price        Nullable(Float64),
			stop_loss         Nullable(Float64),
			status            LowCardinality(String),
			pnl               Nullable(Float64),
			memo              String,
			strategy_score    Int32,
			forbidden_penalty Int32,
			final_score       Int32,
			signal            LowCardinality(String),
			violations        Array(String),
			indicators        String,
			created_at        DateTime64(3, 'UTC')
		) ENGINE = MergeTree
		ORDER BY (symbol, entry_time, id)`, s.table),
	})
}

func (s *CHTradeStore) Append(ctx context.Context, t models.Trade) error {
	return s.AppendBatch(ctx, []models.Trade{t})
}

// AppendBatch inserts trades with one multi-row VALUES statement per chunk.
func (s *CHTradeStore) AppendBatch(ctx context.Context, trades []models.Trade) error {
	const chunkSize = 1000
	for start := 0; start < len(trades); start += chunkSize {
		end := start + chunkSize
		if end > len(trades) {
			end = len(trades)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*20)
		for _, t := range trades[start:end] {
			if t.ID == "" || t.Symbol == "" {
				continue
			}
			ind, err := json.Marshal(t.Indicators)
			if err != nil {
				return fmt.Errorf("encode indicators: %w", err)
			}
			violations := t.Violations
			if violations == nil {
				violations = []string{}
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				t.ID, t.Symbol, string(t.Side), t.Strategy, t.EntryTime.UTC(), t.EntryPrice, t.Quantity,
				utcPtr(t.ExitTime), t.ExitPrice, t.StopLoss, string(t.Status), t.PnL, t.Memo,
				int32(t.StrategyScore), int32(t.ForbiddenPenalty), int32(t.FinalScore), string(t.Signal),
				violations, string(ind), t.CreatedAt.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, tradeColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	return nil
}

func (s *CHTradeStore) Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]models.Trade, error) {
	var (
		where []string
		args  []interface{}
	)
	if symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, symbol)
	}
	if !since.IsZero() {
		where = append(where, "entry_time >= ?")
		args = append(args, since.UTC())
	}
	q := fmt.Sprintf("SELECT %s FROM %s", tradeColumns, s.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY entry_time DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	return s.query(ctx, q, args...)
}

// Page counts and pages in SQL.
func (s *CHTradeStore) Page(ctx context.Context, symbol string, offset, limit int) ([]models.Trade, int64, error) {
	where, args := "", []interface{}{}
	if symbol != "" {
		where, args = " WHERE symbol = ?", append(args, symbol)
	}

	var total uint64
	if err := s.db.QueryRowContext(ctx, "SELECT count() FROM "+s.table+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trades: %w", err)
	}
	if total == 0 || offset >= int(total) {
		return []models.Trade{}, int64(total), nil
	}

	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY entry_time DESC LIMIT ? OFFSET ?", tradeColumns, s.table, where)
	rows, err := s.query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rows, int64(total), nil
}

func (s *CHTradeStore) query(ctx context.Context, q string, args ...interface{}) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t                     models.Trade
			side, status, signal  string
			ind                   string
			strat, penalty, final int32
			exitTime              *time.Time
			exitPrice, stop, pnl  *float64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Strategy, &t.EntryTime, &t.EntryPrice, &t.Quantity,
			&exitTime, &exitPrice, &stop, &status, &pnl, &t.Memo, &strat, &penalty, &final, &signal,
			&t.Violations, &ind, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side, t.Status, t.Signal = models.Side(side), models.TradeStatus(status), models.Signal(signal)
		t.ExitTime, t.ExitPrice, t.StopLoss, t.PnL = exitTime, exitPrice, stop, pnl
		t.StrategyScore, t.ForbiddenPenalty, t.FinalScore = int(strat), int(penalty), int(final)
		if ind != "" && ind != "null" {
			if err := json.Unmarshal([]byte(ind), &t.Indicators); err != nil {
				return nil, fmt.Errorf("decode indicators for %s: %w", t.ID, err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *CHTradeStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHTradeStore) Close() error {
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
