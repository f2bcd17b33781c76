package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/observability"
	"solana-paper-sniper/internal/storage"
)

// OpportunityStore is a PostgreSQL implementation of storage.OpportunityStore.
type OpportunityStore struct {
	pool *Pool
}

// NewOpportunityStore creates a new PostgreSQL opportunity store.
func NewOpportunityStore(pool *Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

var _ storage.OpportunityStore = (*OpportunityStore)(nil)

// Upsert writes the opportunity, overwriting any row for the same token.
func (s *OpportunityStore) Upsert(ctx context.Context, o *domain.Opportunity) error {
	if o == nil || o.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO opportunities (
			token_address, symbol, source, price_usd, liquidity_usd,
			safety_score, is_safe, action, reason, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_address) DO UPDATE
		SET symbol = EXCLUDED.symbol,
		    source = EXCLUDED.source,
		    price_usd = EXCLUDED.price_usd,
		    liquidity_usd = EXCLUDED.liquidity_usd,
		    safety_score = EXCLUDED.safety_score,
		    is_safe = EXCLUDED.is_safe,
		    action = EXCLUDED.action,
		    reason = EXCLUDED.reason,
		    updated_at = EXCLUDED.updated_at
	`,
		o.TokenAddress, o.Symbol, o.Source, o.PriceUSD, o.LiquidityUSD,
		o.SafetyScore, o.IsSafe, string(o.Action), o.Reason, o.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "opportunity_upsert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("upsert opportunity: %w", err)
	}
	return nil
}

// GetByToken retrieves an opportunity. Returns ErrNotFound if not exists.
func (s *OpportunityStore) GetByToken(ctx context.Context, tokenAddress string) (*domain.Opportunity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_address, symbol, source, price_usd, liquidity_usd,
		       safety_score, is_safe, action, reason, updated_at
		FROM opportunities
		WHERE token_address = $1
	`, tokenAddress)

	o, err := scanOpportunity(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListRecent returns up to limit opportunities ordered by updated_at DESC.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]*domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_address, symbol, source, price_usd, liquidity_usd,
		       safety_score, is_safe, action, reason, updated_at
		FROM opportunities
		ORDER BY updated_at DESC, token_address ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var result []*domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}

	return result, rows.Err()
}

func scanOpportunity(row rowScanner) (*domain.Opportunity, error) {
	var o domain.Opportunity
	var action string
	err := row.Scan(
		&o.TokenAddress, &o.Symbol, &o.Source, &o.PriceUSD, &o.LiquidityUSD,
		&o.SafetyScore, &o.IsSafe, &action, &o.Reason, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Action = domain.Action(action)
	return &o, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
