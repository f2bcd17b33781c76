package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-paper-sniper/internal/observability"
)

// FeedConfig configures the PumpPortal WebSocket feed.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize caps buffered events; the oldest is dropped when full.
	BufferSize int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        1000,
	}
}

// NewTokenEvent is a PumpPortal token creation event.
type NewTokenEvent struct {
	Signature             string  `json:"signature"`
	Mint                  string  `json:"mint"`
	TraderPublicKey       string  `json:"traderPublicKey"`
	TxType                string  `json:"txType"`
	InitialBuy            float64 `json:"initialBuy"`
	SolAmount             float64 `json:"solAmount"`
	BondingCurveKey       string  `json:"bondingCurveKey"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	MarketCapSol          float64 `json:"marketCapSol"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	URI                   string  `json:"uri"`
	Pool                  string  `json:"pool"`

	// ReceivedAtMs is set locally when the event is read.
	ReceivedAtMs int64 `json:"-"`
}

type subscribeRequest struct {
	Method string `json:"method"`
}

// PumpPortalFeed subscribes to new-token events and buffers them until drained.
type PumpPortalFeed struct {
	endpoint string
	config   FeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	bufMu   sync.Mutex
	buf     []NewTokenEvent
	dropped atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewPumpPortalFeed creates a feed. Call Start to connect.
func NewPumpPortalFeed(endpoint string, config *FeedConfig, logger *log.Logger) *PumpPortalFeed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFeedConfig().BufferSize
	}
	if logger == nil {
		logger = log.Default()
	}

	return &PumpPortalFeed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start connects, subscribes and starts the read and ping loops.
func (f *PumpPortalFeed) Start(ctx context.Context) error {
	if f.closed.Load() {
		return errors.New("feed closed")
	}
	if err := f.connect(ctx); err != nil {
		return err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return nil
}

// connect dials the endpoint and sends the subscription.
func (f *PumpPortalFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	if f.closed.Load() {
		conn.Close()
		return errors.New("feed closed")
	}

	conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := conn.WriteJSON(subscribeRequest{Method: "subscribeNewToken"}); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	f.conn = conn
	return nil
}

// Drain removes and returns up to max buffered events, oldest first.
// max <= 0 drains everything.
func (f *PumpPortalFeed) Drain(max int) []NewTokenEvent {
	f.bufMu.Lock()
	defer f.bufMu.Unlock()

	n := len(f.buf)
	if max > 0 && max < n {
		n = max
	}
	out := make([]NewTokenEvent, n)
	copy(out, f.buf[:n])
	f.buf = append(f.buf[:0], f.buf[n:]...)
	return out
}

// Buffered returns the number of events waiting to be drained.
func (f *PumpPortalFeed) Buffered() int {
	f.bufMu.Lock()
	defer f.bufMu.Unlock()
	return len(f.buf)
}

// Dropped returns how many events were discarded because the buffer was full.
func (f *PumpPortalFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// Close closes the WebSocket connection and stops the loops.
func (f *PumpPortalFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	return nil
}

// readLoop reads messages and buffers token creation events.
func (f *PumpPortalFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			// The last reconnect failed; schedule another with backoff.
			if !f.reconnecting.Swap(true) {
				observability.RecordFeedReconnect()
				go f.reconnect(nil, reconnectDelay)
				reconnectDelay = f.nextDelay(reconnectDelay)
			}
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				f.logger.Printf("feed read error, reconnecting in %v: %v", reconnectDelay, err)
				observability.RecordFeedReconnect()
				go f.reconnect(conn, reconnectDelay)
			}

			reconnectDelay = f.nextDelay(reconnectDelay)

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect replaces a failed connection after delay.
func (f *PumpPortalFeed) reconnect(failed *websocket.Conn, delay time.Duration) {
	defer f.reconnecting.Store(false)

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil && f.conn != failed {
		f.connMu.Unlock()
		return
	}
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.Printf("feed reconnect failed: %v", err)
	}
}

// nextDelay doubles d up to MaxReconnectDelay.
func (f *PumpPortalFeed) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > f.config.MaxReconnectDelay {
		d = f.config.MaxReconnectDelay
	}
	return d
}

// handleMessage buffers create events and ignores acknowledgements.
func (f *PumpPortalFeed) handleMessage(message []byte) {
	var ev NewTokenEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return
	}
	// Subscription acks carry a "message" field and no mint.
	if ev.Mint == "" {
		return
	}
	if ev.TxType != "" && ev.TxType != "create" {
		return
	}
	ev.ReceivedAtMs = time.Now().UnixMilli()

	f.bufMu.Lock()
	if len(f.buf) >= f.config.BufferSize {
		f.buf = f.buf[1:]
		f.dropped.Add(1)
		observability.RecordFeedDrop()
	}
	f.buf = append(f.buf, ev)
	f.bufMu.Unlock()
}

// pingLoop sends periodic ping frames to keep connection alive.
func (f *PumpPortalFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A dead connection surfaces as a read error.
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
