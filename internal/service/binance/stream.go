package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"TradeScore/internal/domain/models"
	drepo "TradeScore/internal/domain/repository"
	applogger "TradeScore/pkg/logger"
)

// KlineStream is a CandleStream over the Binance combined WebSocket endpoint. Only closed bars
// are emitted.
type KlineStream struct {
	websocketURL   string
	symbols        []string
	tf             models.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	dialer    *websocket.Dialer
}

var _ drepo.CandleStream = (*KlineStream)(nil)

func NewKlineStream(websocketURL string, symbols []string, tf models.Timeframe, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *KlineStream {
	if l == nil {
		l = applogger.NewNop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &KlineStream{
		websocketURL:   websocketURL,
		symbols:        symbols,
		tf:             tf,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
		dialer:         websocket.DefaultDialer,
	}
}

func (s *KlineStream) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.l.Info("binance stream connected", applogger.String("url", s.websocketURL))
	return nil
}

// Subscribe sends one SUBSCRIBE request covering every configured symbol.
func (s *KlineStream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return errors.New("binance stream not connected")
	}
	params := StreamNames(s.symbols, s.tf)
	req := map[string]interface{}{"method": "SUBSCRIBE", "params": params, "id": time.Now().UnixMilli()}
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe %v: %w", params, err)
	}
	s.l.Info("binance stream subscribed", applogger.Strings("streams", params))
	return nil
}

// StreamNames builds "<symbol>@kline_<interval>" names, e.g. btcusdt@kline_5m.
func StreamNames(symbols []string, tf models.Timeframe) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, strings.ToLower(strings.ReplaceAll(sym, "/", ""))+"@kline_"+string(tf))
	}
	return out
}

// Read streams closed candles until ctx ends or the connection fails. Both channels are closed
// when the read loop exits; at most one error is sent.
func (s *KlineStream) Read(ctx context.Context) (<-chan models.Candle, <-chan error) {
	candles := make(chan models.Candle, 256)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		errs <- errors.New("binance stream not connected")
		close(candles)
		close(errs)
		return candles, errs
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// unblock ReadMessage
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				s.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(candles)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("binance read: %w", err)
				}
				return
			}
			c, ok, err := ParseKlineFrame(b)
			if err != nil {
				s.l.Debug("binance frame skipped", applogger.Error(err))
				continue
			}
			if !ok {
				continue
			}
			select {
			case candles <- c:
			case <-ctx.Done():
				return
			default:
				s.l.Warn("binance candle dropped, consumer too slow", applogger.String("symbol", c.Symbol))
			}
		}
	}()

	return candles, errs
}

// ParseKlineFrame decodes a combined-stream kline frame. ok is false for subscription acks and
// for bars that are still open.
func ParseKlineFrame(b []byte) (models.Candle, bool, error) {
	if !gjson.ValidBytes(b) {
		return models.Candle{}, false, errors.New("invalid json frame")
	}
	frame := gjson.ParseBytes(b)
	data := frame.Get("data")
	if !data.Exists() {
		// {"result":null,"id":...} acks and single-stream frames without the envelope
		if frame.Get("e").String() != "kline" {
			return models.Candle{}, false, nil
		}
		data = frame
	}
	if data.Get("e").String() != "kline" {
		return models.Candle{}, false, nil
	}
	k := data.Get("k")
	if !k.Get("x").Bool() {
		return models.Candle{}, false, nil
	}
	c := models.Candle{
		Symbol:    k.Get("s").String(),
		Timeframe: models.NormalizeTimeframe(k.Get("i").String()),
		Timestamp: time.UnixMilli(k.Get("t").Int()).UTC(),
		Open:      k.Get("o").Float(),
		High:      k.Get("h").Float(),
		Low:       k.Get("l").Float(),
		Close:     k.Get("c").Float(),
		Volume:    k.Get("v").Float(),
	}
	if err := c.Validate(); err != nil {
		return models.Candle{}, false, err
	}
	return c, true, nil
}

// Reconnect closes, waits reconnectDelay (or until ctx ends) and connects again.
func (s *KlineStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

func (s *KlineStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *KlineStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
