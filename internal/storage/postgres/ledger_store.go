package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

// DefaultLogRetention is the number of log entries kept when none is configured.
const DefaultLogRetention = 500

// openTokenIndex is the partial unique index allowing one OPEN position per token.
const openTokenIndex = "positions_open_token_uq"

// LedgerStore is a PostgreSQL implementation of storage.LedgerStore.
// Every open/close runs in one transaction with the balance row locked
// FOR UPDATE, so concurrent units on the same ledger serialize on it.
// SOL amounts travel as NUMERIC text to keep decimal precision.
type LedgerStore struct {
	pool      *Pool
	retention int
}

// NewLedgerStore creates a new PostgreSQL ledger store.
// logRetention <= 0 uses DefaultLogRetention.
func NewLedgerStore(pool *Pool, logRetention int) *LedgerStore {
	if logRetention <= 0 {
		logRetention = DefaultLogRetention
	}
	return &LedgerStore{pool: pool, retention: logRetention}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

// InitBalance seeds the balance row if absent and returns the current balance.
func (s *LedgerStore) InitBalance(ctx context.Context, initial decimal.Decimal) (decimal.Decimal, error) {
	if initial.IsNegative() {
		return decimal.Zero, storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_balance (id, sol, updated_at)
		VALUES (1, $1::numeric, $2)
		ON CONFLICT (id) DO NOTHING
	`, initial.String(), time.Now().UnixMilli())
	if err != nil {
		return decimal.Zero, fmt.Errorf("init balance: %w", err)
	}

	return s.Balance(ctx)
}

// Balance returns the current virtual SOL balance, zero if never initialized.
func (s *LedgerStore) Balance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT sol::text FROM ledger_balance WHERE id = 1`).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	return decimal.NewFromString(raw)
}

// OpenPosition debits the balance and writes the BUY, the position and the log in one transaction.
func (s *LedgerStore) OpenPosition(ctx context.Context, op *storage.OpenPositionTx) error {
	if err := validateOpen(op); err != nil {
		return err
	}

	return s.pool.withTx(ctx, "ledger_open", func(tx pgx.Tx) error {
		balance, err := lockBalance(ctx, tx)
		if err != nil {
			return err
		}
		if balance.LessThan(op.Trade.SOLAmount) {
			return storage.ErrInsufficientBalance
		}

		if err := insertPosition(ctx, tx, op.Position); err != nil {
			if isDuplicateKeyError(err, openTokenIndex) {
				return storage.ErrPositionExists
			}
			if isDuplicateKeyError(err, "") {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert position: %w", err)
		}

		if err := adjustBalance(ctx, tx, op.Trade.SOLAmount.Neg(), op.Trade.CreatedAt); err != nil {
			return err
		}
		if err := insertTrade(ctx, tx, op.Trade); err != nil {
			return err
		}
		return s.insertLog(ctx, tx, op.Log)
	})
}

// ClosePosition marks the position CLOSED and credits the SELL proceeds in one transaction.
func (s *LedgerStore) ClosePosition(ctx context.Context, cl *storage.ClosePositionTx) error {
	if err := validateClose(cl); err != nil {
		return err
	}

	return s.pool.withTx(ctx, "ledger_close", func(tx pgx.Tx) error {
		if _, err := lockBalance(ctx, tx); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE positions
			SET status = 'CLOSED',
			    current_price_usd = $2,
			    pnl_pct = $3,
			    exit_reason = $4,
			    updated_at = $5,
			    closed_at = $5
			WHERE position_id = $1 AND status = 'OPEN'
		`, cl.PositionID, cl.ExitPriceUSD, cl.PnLPct, string(cl.ExitReason), cl.ClosedAt)
		if err != nil {
			return fmt.Errorf("close position: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrPositionNotOpen
		}

		if err := adjustBalance(ctx, tx, cl.Trade.SOLAmount, cl.ClosedAt); err != nil {
			return err
		}
		if err := insertTrade(ctx, tx, cl.Trade); err != nil {
			return err
		}
		return s.insertLog(ctx, tx, cl.Log)
	})
}

// UpdatePnL stores the latest price and PnL of an OPEN position.
func (s *LedgerStore) UpdatePnL(ctx context.Context, positionID string, priceUSD, pnlPct float64, marketCapUSD *float64, updatedAt int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE positions
		SET current_price_usd = $2,
		    pnl_pct = $3,
		    market_cap_usd = COALESCE($4, market_cap_usd),
		    updated_at = $5
		WHERE position_id = $1 AND status = 'OPEN'
	`, positionID, priceUSD, pnlPct, marketCapUSD, updatedAt)
	if err != nil {
		return fmt.Errorf("update pnl: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPositionNotOpen
	}
	return nil
}

const positionColumns = `
	position_id, token_address, symbol, entry_price_usd, current_price_usd,
	token_amount, sol_cost::text, market_cap_usd, status, pnl_pct,
	simulated, exit_reason, created_at, updated_at, closed_at`

// GetPosition retrieves a position by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetPosition(ctx context.Context, positionID string) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE position_id = $1`, positionID)

	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetOpenByToken retrieves the OPEN position of a token. Returns ErrNotFound if none.
func (s *LedgerStore) GetOpenByToken(ctx context.Context, tokenAddress string) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE token_address = $1 AND status = 'OPEN'
	`, tokenAddress)

	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListOpen returns all OPEN positions ordered by created_at ASC.
func (s *LedgerStore) ListOpen(ctx context.Context) ([]*domain.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE status = 'OPEN'
		ORDER BY created_at ASC, position_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListRecentTrades returns up to limit trades ordered by created_at DESC.
func (s *LedgerStore) ListRecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trade_id, position_id, token_address, symbol, side,
		       sol_amount::text, token_amount, price_usd, simulated, created_at
		FROM trades
		ORDER BY created_at DESC, trade_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, sol string
		err := rows.Scan(
			&t.ID, &t.PositionID, &t.TokenAddress, &t.Symbol, &side,
			&sol, &t.TokenAmount, &t.PriceUSD, &t.Simulated, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.Side = domain.TradeSide(side)
		if t.SOLAmount, err = decimal.NewFromString(sol); err != nil {
			return nil, fmt.Errorf("parse trade sol amount: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// AppendLog appends a log entry and prunes beyond retention.
func (s *LedgerStore) AppendLog(ctx context.Context, e *domain.LogEntry) error {
	if e == nil || e.Level == "" {
		return storage.ErrInvalidInput
	}
	return s.pool.withTx(ctx, "ledger_log", func(tx pgx.Tx) error {
		return s.insertLog(ctx, tx, e)
	})
}

// ListRecentLogs returns up to limit log entries, newest first.
func (s *LedgerStore) ListRecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, level, message
		FROM ledger_logs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var result []*domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var level string
		if err := rows.Scan(&e.ID, &e.CreatedAt, &level, &e.Message); err != nil {
			return nil, err
		}
		e.Level = domain.LogLevel(level)
		result = append(result, &e)
	}
	return result, rows.Err()
}

// insertLog writes e and deletes everything older than the newest retention rows.
// A nil entry is ignored.
func (s *LedgerStore) insertLog(ctx context.Context, tx pgx.Tx, e *domain.LogEntry) error {
	if e == nil {
		return nil
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO ledger_logs (created_at, level, message)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.CreatedAt, string(e.Level), e.Message).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM ledger_logs
		WHERE id <= (
			SELECT id FROM ledger_logs ORDER BY id DESC OFFSET $1 LIMIT 1
		)
	`, s.retention)
	if err != nil {
		return fmt.Errorf("prune logs: %w", err)
	}
	return nil
}

func lockBalance(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow(ctx, `SELECT sol::text FROM ledger_balance WHERE id = 1 FOR UPDATE`).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return decimal.Zero, fmt.Errorf("balance not initialized: %w", storage.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("lock balance: %w", err)
	}
	return decimal.NewFromString(raw)
}

func adjustBalance(ctx context.Context, tx pgx.Tx, delta decimal.Decimal, at int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE ledger_balance
		SET sol = sol + $1::numeric, updated_at = $2
		WHERE id = 1
	`, delta.String(), at)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}

func insertPosition(ctx context.Context, tx pgx.Tx, p *domain.Position) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO positions (
			position_id, token_address, symbol, entry_price_usd, current_price_usd,
			token_amount, sol_cost, market_cap_usd, status, pnl_pct,
			simulated, exit_reason, created_at, updated_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		p.ID, p.TokenAddress, p.Symbol, p.EntryPriceUSD, p.CurrentPriceUSD,
		p.TokenAmount, p.SOLCost.String(), p.MarketCapUSD, string(p.Status), p.PnLPct,
		p.Simulated, string(p.ExitReason), p.CreatedAt, p.UpdatedAt, p.ClosedAt,
	)
	return err
}

func insertTrade(ctx context.Context, tx pgx.Tx, t *domain.Trade) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trades (
			trade_id, position_id, token_address, symbol, side,
			sol_amount, token_amount, price_usd, simulated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
	`,
		t.ID, t.PositionID, t.TokenAddress, t.Symbol, string(t.Side),
		t.SOLAmount.String(), t.TokenAmount, t.PriceUSD, t.Simulated, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err, "") {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var p domain.Position
	var solCost, status, exitReason string
	err := row.Scan(
		&p.ID, &p.TokenAddress, &p.Symbol, &p.EntryPriceUSD, &p.CurrentPriceUSD,
		&p.TokenAmount, &solCost, &p.MarketCapUSD, &status, &p.PnLPct,
		&p.Simulated, &exitReason, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PositionStatus(status)
	p.ExitReason = domain.ExitReason(exitReason)
	if p.SOLCost, err = decimal.NewFromString(solCost); err != nil {
		return nil, fmt.Errorf("parse position sol cost: %w", err)
	}
	return &p, nil
}

func validateOpen(op *storage.OpenPositionTx) error {
	if op == nil || op.Position == nil || op.Trade == nil {
		return storage.ErrInvalidInput
	}
	if op.Position.ID == "" || op.Position.TokenAddress == "" || op.Position.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}
	if op.Trade.ID == "" || op.Trade.Side != domain.SideBuy || !op.Trade.SOLAmount.IsPositive() {
		return storage.ErrInvalidInput
	}
	return nil
}

func validateClose(cl *storage.ClosePositionTx) error {
	if cl == nil || cl.PositionID == "" || cl.Trade == nil {
		return storage.ErrInvalidInput
	}
	if cl.Trade.ID == "" || cl.Trade.Side != domain.SideSell || cl.Trade.SOLAmount.IsNegative() {
		return storage.ErrInvalidInput
	}
	return nil
}
