package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/observability"
	"solana-paper-sniper/internal/storage"
)

// PnLHistoryStore implements storage.PnLHistoryStore using ClickHouse.
type PnLHistoryStore struct {
	conn *Conn
}

// NewPnLHistoryStore creates a new PnLHistoryStore.
func NewPnLHistoryStore(conn *Conn) *PnLHistoryStore {
	return &PnLHistoryStore{conn: conn}
}

var _ storage.PnLHistoryStore = (*PnLHistoryStore)(nil)

// InsertBulk appends points in one batch.
func (s *PnLHistoryStore) InsertBulk(ctx context.Context, points []*domain.PnLPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.PositionID == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "pnl_insert", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pnl_history (
			position_id, token_address, timestamp_ms, price_usd, pnl_pct, market_cap_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.PositionID, p.TokenAddress, uint64(p.TimestampMs),
			p.PriceUSD, p.PnLPct, p.MarketCapUSD,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByPosition retrieves all points for a position, ordered by timestamp ASC.
func (s *PnLHistoryStore) GetByPosition(ctx context.Context, positionID string) ([]*domain.PnLPoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT position_id, token_address, timestamp_ms, price_usd, pnl_pct, market_cap_usd
		FROM pnl_history
		WHERE position_id = ?
		ORDER BY timestamp_ms ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("query by position id: %w", err)
	}
	defer rows.Close()

	return scanPnLPoints(rows)
}

func scanPnLPoints(rows chRows) ([]*domain.PnLPoint, error) {
	points := []*domain.PnLPoint{}

	for rows.Next() {
		var p domain.PnLPoint
		var timestampMs uint64

		err := rows.Scan(
			&p.PositionID, &p.TokenAddress, &timestampMs,
			&p.PriceUSD, &p.PnLPct, &p.MarketCapUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pnl history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnl history rows: %w", err)
	}
	return points, nil
}
