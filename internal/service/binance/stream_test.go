package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeScore/internal/domain/models"
)

const closedFrame = `{"stream":"btcusdt@kline_5m","data":{"e":"kline","E":1714565100001,"s":"BTCUSDT",
"k":{"t":1714564800000,"T":1714565099999,"s":"BTCUSDT","i":"5m","o":"100.5","c":"101.5","h":"102.0","l":"100.0","v":"20.5","x":true}}}`

const openFrame = `{"stream":"btcusdt@kline_5m","data":{"e":"kline","E":1714565000000,"s":"BTCUSDT",
"k":{"t":1714565100000,"T":1714565399999,"s":"BTCUSDT","i":"5m","o":"101.5","c":"101.7","h":"101.9","l":"101.4","v":"3","x":false}}}`

func TestParseKlineFrame(t *testing.T) {
	c, ok, err := ParseKlineFrame([]byte(closedFrame))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", c.Symbol)
	assert.Equal(t, models.TF5m, c.Timeframe)
	assert.Equal(t, time.UnixMilli(1714564800000).UTC(), c.Timestamp)
	assert.Equal(t, 101.5, c.Close)
	assert.Equal(t, 20.5, c.Volume)

	_, ok, err = ParseKlineFrame([]byte(openFrame))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ParseKlineFrame([]byte(`{"result":null,"id":1}`))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseKlineFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, []string{"btcusdt@kline_1m", "ethusdt@kline_1m"}, StreamNames([]string{"BTCUSDT", "ETH/USDT"}, models.TF1m))
}

func TestKlineStreamEndToEnd(t *testing.T) {
	subscribed := make(chan []string, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req struct {
			Method string   `json:"method"`
			Params []string `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subscribed <- req.Params
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(openFrame))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(closedFrame))
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := NewKlineStream("ws"+strings.TrimPrefix(srv.URL, "http"), []string{"BTCUSDT"}, models.TF5m, time.Millisecond, time.Second, nil)
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Subscribe(ctx))
	assert.Equal(t, []string{"btcusdt@kline_5m"}, <-subscribed)

	candles, _ := s.Read(ctx)
	select {
	case c := <-candles:
		assert.Equal(t, 101.5, c.Close)
	case <-ctx.Done():
		t.Fatal("no candle received")
	}

	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
}
