package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/loop"
	"solana-paper-sniper/internal/storage"
)

// BalanceResponse is the virtual balance.
type BalanceResponse struct {
	SOL decimal.Decimal `json:"sol"`
	USD float64         `json:"usd"`
}

// PositionResponse is one position.
type PositionResponse struct {
	ID              string          `json:"id"`
	TokenAddress    string          `json:"token_address"`
	Symbol          string          `json:"symbol"`
	EntryPriceUSD   float64         `json:"entry_price_usd"`
	CurrentPriceUSD float64         `json:"current_price_usd"`
	TokenAmount     float64         `json:"token_amount"`
	SOLCost         decimal.Decimal `json:"sol_cost"`
	MarketCapUSD    *float64        `json:"market_cap_usd,omitempty"`
	PnLPct          float64         `json:"pnl_pct"`
	Status          string          `json:"status"`
	ExitReason      string          `json:"exit_reason,omitempty"`
	Simulated       bool            `json:"simulated"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
	ClosedAt        *int64          `json:"closed_at,omitempty"`
}

// TradeResponse is one fill.
type TradeResponse struct {
	ID           string          `json:"id"`
	PositionID   string          `json:"position_id"`
	TokenAddress string          `json:"token_address"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	SOLAmount    decimal.Decimal `json:"sol_amount"`
	TokenAmount  float64         `json:"token_amount"`
	PriceUSD     float64         `json:"price_usd"`
	Simulated    bool            `json:"simulated"`
	CreatedAt    int64           `json:"created_at"`
}

// LogResponse is one journal entry.
type LogResponse struct {
	ID        int64  `json:"id"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// OpportunityResponse is the latest scan of a token.
type OpportunityResponse struct {
	TokenAddress string  `json:"token_address"`
	Symbol       string  `json:"symbol"`
	Source       string  `json:"source"`
	PriceUSD     float64 `json:"price_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	SafetyScore  int     `json:"safety_score"`
	IsSafe       bool    `json:"is_safe"`
	Action       string  `json:"action"`
	Reason       string  `json:"reason"`
	UpdatedAt    int64   `json:"updated_at"`
}

// PnLPointResponse is one monitor observation.
type PnLPointResponse struct {
	TimestampMs  int64   `json:"timestamp_ms"`
	PriceUSD     float64 `json:"price_usd"`
	PnLPct       float64 `json:"pnl_pct"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}

// StatusResponse reports process and loop state.
type StatusResponse struct {
	Status       string       `json:"status"`
	Uptime       string       `json:"uptime"`
	StartedAt    time.Time    `json:"started_at"`
	PaperTrading bool         `json:"paper_trading"`
	Loops        []loop.Stats `json:"loops"`
}

// GetBalance handles GET /api/v1/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	bal, err := h.ledger.Balance(ctx)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{SOL: bal.SOL, USD: bal.USD})
}

// GetPositions handles GET /api/v1/positions.
func (h *Handler) GetPositions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	positions, err := h.ledger.ListOpen(ctx)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		resp = append(resp, toPositionResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

// GetPositionHistory handles GET /api/v1/positions/:id/history.
func (h *Handler) GetPositionHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	id, err := h.validator.ValidatePositionID(c.Param("id"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	pos, err := h.ledger.GetPosition(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		h.handleError(c, err, http.StatusNotFound, "position not found")
		return
	}
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	points := []*domain.PnLPoint{}
	if h.history != nil {
		points, err = h.history.GetByPosition(ctx, id)
		if err != nil {
			h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	history := make([]PnLPointResponse, 0, len(points))
	for _, pt := range points {
		history = append(history, PnLPointResponse{
			TimestampMs:  pt.TimestampMs,
			PriceUSD:     pt.PriceUSD,
			PnLPct:       pt.PnLPct,
			MarketCapUSD: pt.MarketCapUSD,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"position": toPositionResponse(pos),
		"history":  history,
	})
}

// GetTrades handles GET /api/v1/trades.
func (h *Handler) GetTrades(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	limit, err := h.validator.ValidateLimit(c.Query("limit"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	trades, err := h.ledger.ListRecentTrades(ctx, limit)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, TradeResponse{
			ID:           t.ID,
			PositionID:   t.PositionID,
			TokenAddress: t.TokenAddress,
			Symbol:       t.Symbol,
			Side:         string(t.Side),
			SOLAmount:    t.SOLAmount,
			TokenAmount:  t.TokenAmount,
			PriceUSD:     t.PriceUSD,
			Simulated:    t.Simulated,
			CreatedAt:    t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetLogs handles GET /api/v1/logs.
func (h *Handler) GetLogs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	limit, err := h.validator.ValidateLimit(c.Query("limit"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	entries, err := h.ledger.ListRecentLogs(ctx, limit)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]LogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LogResponse{ID: e.ID, CreatedAt: e.CreatedAt, Level: string(e.Level), Message: e.Message})
	}
	c.JSON(http.StatusOK, resp)
}

// GetOpportunities handles GET /api/v1/opportunities.
func (h *Handler) GetOpportunities(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	limit, err := h.validator.ValidateLimit(c.Query("limit"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	opps, err := h.opportunities.ListRecent(ctx, limit)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]OpportunityResponse, 0, len(opps))
	for _, o := range opps {
		resp = append(resp, OpportunityResponse{
			TokenAddress: o.TokenAddress,
			Symbol:       o.Symbol,
			Source:       o.Source,
			PriceUSD:     o.PriceUSD,
			LiquidityUSD: o.LiquidityUSD,
			SafetyScore:  o.SafetyScore,
			IsSafe:       o.IsSafe,
			Action:       string(o.Action),
			Reason:       o.Reason,
			UpdatedAt:    o.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetStatus handles GET /api/v1/status.
func (h *Handler) GetStatus(c *gin.Context) {
	loops := make([]loop.Stats, 0, len(h.loops))
	for _, l := range h.loops {
		loops = append(loops, l.Stats())
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:       "running",
		Uptime:       time.Since(h.startedAt).Truncate(time.Second).String(),
		StartedAt:    h.startedAt,
		PaperTrading: h.paperTrading,
		Loops:        loops,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

func toPositionResponse(p *domain.Position) PositionResponse {
	return PositionResponse{
		ID:              p.ID,
		TokenAddress:    p.TokenAddress,
		Symbol:          p.Symbol,
		EntryPriceUSD:   p.EntryPriceUSD,
		CurrentPriceUSD: p.CurrentPriceUSD,
		TokenAmount:     p.TokenAmount,
		SOLCost:         p.SOLCost,
		MarketCapUSD:    p.MarketCapUSD,
		PnLPct:          p.PnLPct,
		Status:          string(p.Status),
		ExitReason:      string(p.ExitReason),
		Simulated:       p.Simulated,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ClosedAt:        p.ClosedAt,
	}
}

// handleError logs the error and sends the JSON error body.
func (h *Handler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestID := c.GetString(RequestIDContextKey)
	if requestID == "" {
		requestID = "unknown"
	}

	h.logger.Printf("API error request_id=%s method=%s path=%s status=%d: %v",
		requestID, c.Request.Method, c.Request.URL.Path, statusCode, err)

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestID,
	})
}

func (h *Handler) handleValidationError(c *gin.Context, err error) {
	h.handleError(c, err, http.StatusBadRequest, err.Error())
}
