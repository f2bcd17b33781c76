package config

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("USE_MEMORY", "")

	cfg, err := Load([]string{"--use-memory"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.UseMemory {
		t.Error("UseMemory = false, want true")
	}
	if cfg.MinLiquidityUSD != 10000 || cfg.MinVolumeUSD != 50000 {
		t.Errorf("gates = %v/%v, want 10000/50000", cfg.MinLiquidityUSD, cfg.MinVolumeUSD)
	}
	if cfg.SafetyThreshold != 80 || cfg.AutoBuyThreshold != 80 {
		t.Errorf("thresholds = %d/%v, want 80/80", cfg.SafetyThreshold, cfg.AutoBuyThreshold)
	}
	if !cfg.PaperTrading {
		t.Error("PaperTrading = false, want true")
	}
	if !cfg.TradeSizeSOL.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("TradeSizeSOL = %s, want 0.1", cfg.TradeSizeSOL)
	}
	if !cfg.InitialBalanceSOL.Equal(decimal.NewFromInt(10)) {
		t.Errorf("InitialBalanceSOL = %s, want 10", cfg.InitialBalanceSOL)
	}
	if cfg.MonitorInterval != 5*time.Second || cfg.BondingScanInterval != 10*time.Second {
		t.Errorf("intervals = %v/%v, want 5s/10s", cfg.MonitorInterval, cfg.BondingScanInterval)
	}
	if cfg.LogRetention != 500 {
		t.Errorf("LogRetention = %d, want 500", cfg.LogRetention)
	}
}

func TestLoad_EnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("STOP_LOSS_PCT", "20")
	t.Setenv("SOL_USD", "200")

	cfg, err := Load([]string{"--sol-usd=175"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StopLossPct != 20 {
		t.Errorf("StopLossPct = %v, want 20 from env", cfg.StopLossPct)
	}
	if cfg.SOLUSD != 175 {
		t.Errorf("SOLUSD = %v, want 175 from flag", cfg.SOLUSD)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("MONITOR_INTERVAL", "soon")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for invalid MONITOR_INTERVAL")
	}
}

func TestLoad_RequiresPostgres(t *testing.T) {
	t.Setenv("USE_MEMORY", "false")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load(nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("USE_MEMORY", "true")
	base, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative liquidity", func(c *Config) { c.MinLiquidityUSD = -1 }},
		{"safety above 100", func(c *Config) { c.SafetyThreshold = 101 }},
		{"confidence range inverted", func(c *Config) { c.ConfidenceMin = 90; c.ConfidenceMax = 60 }},
		{"zero stop loss", func(c *Config) { c.StopLossPct = 0 }},
		{"zero trade size", func(c *Config) { c.TradeSizeSOL = decimal.Zero }},
		{"zero sol usd", func(c *Config) { c.SOLUSD = 0 }},
		{"zero divisor", func(c *Config) { c.PriceDivisor = 0 }},
		{"zero monitor interval", func(c *Config) { c.MonitorInterval = 0 }},
		{"zero batch", func(c *Config) { c.ScanBatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if err := base.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
