// Package main runs the paper-trading agent: scanners, PnL monitor and the
// read-only HTTP API in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"solana-paper-sniper/internal/api"
	"solana-paper-sniper/internal/config"
	"solana-paper-sniper/internal/decision"
	"solana-paper-sniper/internal/ledger"
	"solana-paper-sniper/internal/marketdata"
	"solana-paper-sniper/internal/monitor"
	"solana-paper-sniper/internal/oracle"
	"solana-paper-sniper/internal/safety"
	"solana-paper-sniper/internal/scanner"
	"solana-paper-sniper/internal/solana"
	"solana-paper-sniper/internal/storage"
	chstore "solana-paper-sniper/internal/storage/clickhouse"
	"solana-paper-sniper/internal/storage/memory"
	"solana-paper-sniper/internal/storage/migrations"
	pgstore "solana-paper-sniper/internal/storage/postgres"
)

const shutdownTimeout = 30 * time.Second

// stores holds the storage implementations selected at startup.
type stores struct {
	ledger        storage.LedgerStore
	opportunities storage.OpportunityStore
	history       storage.PnLHistoryStore
}

func main() {
	logger := newLogger("agent")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Printf("Graceful shutdown timed out after %v, forcing exit", shutdownTimeout)
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, st, logger)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Agent error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lshortfile)
}

// createStores opens the configured backends and applies migrations.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		logger.Println("Using in-memory storage")
		return &stores{
			ledger:        memory.NewLedgerStore(cfg.LogRetention),
			opportunities: memory.NewOpportunityStore(),
			history:       memory.NewPnLHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	st := &stores{
		ledger:        pgstore.NewLedgerStore(pool, cfg.LogRetention),
		opportunities: pgstore.NewOpportunityStore(pool),
	}

	if cfg.ClickhouseDSN == "" {
		logger.Println("No ClickHouse DSN, PnL history kept in memory")
		st.history = memory.NewPnLHistoryStore()
		return st, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.history = chstore.NewPnLHistoryStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

type slotGetter interface {
	GetSlot(ctx context.Context) (int64, error)
}

// checkRPC logs whether the RPC endpoint answers. A failure is only logged.
func checkRPC(ctx context.Context, rpc slotGetter, timeout time.Duration, logger *log.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slot, err := rpc.GetSlot(ctx)
	if err != nil {
		logger.Printf("Solana RPC connectivity check failed: %v", err)
		return false
	}
	logger.Printf("Solana RPC reachable, current slot %d", slot)
	return true
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, st *stores, logger *log.Logger) error {
	dex := marketdata.NewDexScreenerClient(cfg.DexScreenerURL, marketdata.WithTimeout(cfg.HTTPTimeout))
	pump := marketdata.NewPumpFunClient(cfg.PumpFunURL, marketdata.WithTimeout(cfg.HTTPTimeout))

	priceOracle := oracle.New(oracle.Options{
		Pairs:        dex,
		Coins:        pump,
		PriceDivisor: cfg.PriceDivisor,
	})

	l := ledger.New(ledger.Options{
		Store:            st.ledger,
		Oracle:           priceOracle,
		SOLUSD:           cfg.SOLUSD,
		PlaceholderPrice: cfg.PlaceholderPrice,
		Simulated:        cfg.PaperTrading,
		Logger:           newLogger("ledger"),
	})
	bal, err := l.Init(ctx, cfg.InitialBalanceSOL)
	if err != nil {
		return err
	}
	logger.Printf("Virtual balance: %s SOL (paper trading: %v)", bal.String(), cfg.PaperTrading)

	// Safety signals: the mint account decides mint-disabled when an RPC
	// endpoint is configured; LP-burnt is always the static assumption.
	assumed := safety.NewStaticChecker(safety.Signals{MintDisabled: true, LPBurnt: true})
	var checker safety.Checker = assumed
	var metadata scanner.MetadataResolver
	if cfg.SolanaRPCEndpoint != "" {
		rpc := solana.NewHTTPClient(cfg.SolanaRPCEndpoint, solana.WithTimeout(cfg.HTTPTimeout))
		checkRPC(ctx, rpc, cfg.HTTPTimeout, logger)
		checker = safety.NewRPCChecker(rpc, assumed)
		metadata = solana.NewMetadataResolver(rpc)
		logger.Printf("Using Solana RPC %s for safety and metadata", cfg.SolanaRPCEndpoint)
	}

	engine := decision.NewEngine(decision.Options{
		Thresholds: decision.Thresholds{
			MinLiquidityUSD:  cfg.MinLiquidityUSD,
			MinVolumeUSD:     cfg.MinVolumeUSD,
			SafetyThreshold:  cfg.SafetyThreshold,
			AutoBuyThreshold: cfg.AutoBuyThreshold,
		},
		Scorer: decision.NewRandomScorer(cfg.ConfidenceMin, cfg.ConfidenceMax, time.Now().UnixNano()),
		Logger: newLogger("decision"),
	})

	newScanner := func(src scanner.Source, interval, maxAge time.Duration) *scanner.Scanner {
		return scanner.New(scanner.Options{
			Source:          src,
			Decider:         engine,
			Ledger:          l,
			Opportunities:   st.opportunities,
			Safety:          checker,
			Metadata:        metadata,
			Interval:        interval,
			BatchSize:       cfg.ScanBatchSize,
			MaxAge:          maxAge,
			MinMarketCapUSD: cfg.MinMarketCapUSD,
			PaperTrading:    cfg.PaperTrading,
			TradeSizeSOL:    cfg.TradeSizeSOL,
			Logger:          newLogger("scanner:" + src.Name()),
		})
	}

	scanners := []*scanner.Scanner{
		newScanner(scanner.NewDexScreenerSource(dex), cfg.MarketScanInterval, cfg.MaxCandidateAge),
		newScanner(scanner.NewPumpFunSource(pump, cfg.SOLUSD, cfg.PriceDivisor), cfg.BondingScanInterval, cfg.BondingMaxAge),
	}

	if cfg.PumpPortalWSURL != "" {
		feed := marketdata.NewPumpPortalFeed(cfg.PumpPortalWSURL, nil, newLogger("pumpportal"))
		if err := feed.Start(ctx); err != nil {
			logger.Printf("PumpPortal feed unavailable, continuing without it: %v", err)
		} else {
			defer feed.Close()
			scanners = append(scanners,
				newScanner(scanner.NewPumpPortalSource(feed, cfg.SOLUSD, cfg.PriceDivisor), cfg.BondingScanInterval, cfg.BondingMaxAge))
		}
	}

	mon := monitor.New(monitor.Options{
		Ledger:        l,
		Oracle:        priceOracle,
		History:       st.history,
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
		Interval:      cfg.MonitorInterval,
		Logger:        newLogger("monitor"),
	})

	loops := make([]api.LoopReporter, 0, len(scanners)+1)
	for _, s := range scanners {
		loops = append(loops, s)
	}
	loops = append(loops, mon)

	handler := api.NewHandler(api.Options{
		Ledger:        l,
		Opportunities: st.opportunities,
		History:       st.history,
		Loops:         loops,
		PaperTrading:  cfg.PaperTrading,
		Logger:        newLogger("api"),
	})
	srv := handler.NewServer(cfg.HTTPAddr)

	var wg sync.WaitGroup
	errCh := make(chan error, len(scanners)+2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, s := range scanners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("scanner %s: %w", s.Name(), err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("monitor: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown: %v", err)
	}

	if !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	wg.Wait()
	return runErr
}
