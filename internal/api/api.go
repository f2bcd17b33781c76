// Package api exposes read-only JSON projections of the agent state.
//
// Files:
//   - api.go: Handler, its dependencies and routes
//   - handler.go: HTTP handlers and response shapes
//   - middleware.go: request ID, access log and CORS
//   - validator.go: query and path validation
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/ledger"
	"solana-paper-sniper/internal/loop"
	"solana-paper-sniper/internal/observability"
)

const (
	DefaultTimeout      = 10 * time.Second
	ServiceName         = "solana-paper-sniper"
	ServiceVersion      = "1.0.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// LedgerReader is the read side of the ledger.
type LedgerReader interface {
	Balance(ctx context.Context) (ledger.BalanceView, error)
	ListOpen(ctx context.Context) ([]*domain.Position, error)
	GetPosition(ctx context.Context, positionID string) (*domain.Position, error)
	ListRecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error)
	ListRecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error)
}

// OpportunityReader lists recent scan results.
type OpportunityReader interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.Opportunity, error)
}

// HistoryReader returns the PnL history of a position.
type HistoryReader interface {
	GetByPosition(ctx context.Context, positionID string) ([]*domain.PnLPoint, error)
}

// LoopReporter reports the counters of a scanner or monitor loop.
type LoopReporter interface {
	Stats() loop.Stats
}

// Options configures Handler.
type Options struct {
	Ledger        LedgerReader      // required
	Opportunities OpportunityReader // required
	History       HistoryReader     // optional
	Loops         []LoopReporter
	PaperTrading  bool
	Logger        *log.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	ledger        LedgerReader
	opportunities OpportunityReader
	history       HistoryReader
	loops         []LoopReporter
	paperTrading  bool
	validator     *Validator
	logger        *log.Logger
	startedAt     time.Time
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		ledger:        opts.Ledger,
		opportunities: opts.Opportunities,
		history:       opts.History,
		loops:         opts.Loops,
		paperTrading:  opts.PaperTrading,
		validator:     GetValidator(),
		logger:        logger,
		startedAt:     time.Now(),
	}
}

// SetupRoutes builds the gin engine.
func (h *Handler) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(ginLoggerMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/balance", h.GetBalance)
	v1.GET("/positions", h.GetPositions)
	v1.GET("/positions/:id/history", h.GetPositionHistory)
	v1.GET("/trades", h.GetTrades)
	v1.GET("/logs", h.GetLogs)
	v1.GET("/opportunities", h.GetOpportunities)
	v1.GET("/status", h.GetStatus)

	return router
}

// NewServer wraps the routes in an http.Server bound to addr.
func (h *Handler) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
