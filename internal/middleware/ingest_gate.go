package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	"TradeScore/internal/service/ratelimit"
	applogger "TradeScore/pkg/logger"
)

// Admission is what happened to a submitted event.
type Admission string

const (
	Accepted  Admission = "accepted"
	Throttled Admission = "throttled"
	Buffered  Admission = "buffered"
)

// ErrBufferFull means the producer is down and the retry buffer has no room left.
var ErrBufferFull = errors.New("ingest buffer full")

// IngestGate sits between the HTTP surface and the raw topic. It validates, throttles per pair
// and forwards events, holding them in a bounded buffer while the producer is failing.
type IngestGate struct {
	pub     domrepo.EventPublisher
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	bufCh   chan models.TradeEvent
	l       *applogger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type GateOption func(*IngestGate)

// WithPerPairInterval admits at most one event per pair per interval. Zero disables throttling.
func WithPerPairInterval(d time.Duration) GateOption {
	return func(g *IngestGate) { g.limiter = ratelimit.PerInterval(d) }
}

func WithBufferSize(n int) GateOption {
	return func(g *IngestGate) {
		if n > 0 {
			g.bufCh = make(chan models.TradeEvent, n)
		}
	}
}

func WithGateLogger(l *applogger.Logger) GateOption {
	return func(g *IngestGate) {
		if l != nil {
			g.l = l
		}
	}
}

func NewIngestGate(pub domrepo.EventPublisher, metrics domrepo.Metrics, opts ...GateOption) *IngestGate {
	g := &IngestGate{
		pub:     pub,
		metrics: metrics,
		bufCh:   make(chan models.TradeEvent, 1000),
		l:       applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.l = g.l.With(applogger.String("component", "ingest_gate"))
	return g
}

// Submit validates ev and forwards it. A producer failure buffers the event and reports Buffered;
// only a full buffer is an error.
func (g *IngestGate) Submit(ctx context.Context, ev models.TradeEvent) (Admission, error) {
	start := time.Now()
	ev.Pair = strings.TrimSpace(ev.Pair)
	if err := ev.Validate(); err != nil {
		g.metrics.RecordError("ingest_validate")
		return "", err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if !g.limiter.Allow(ev.Pair) {
		g.metrics.RecordError("ingest_throttle")
		return Throttled, nil
	}

	if err := g.pub.PublishEvent(ctx, ev); err != nil {
		g.metrics.RecordError("ingest_publish")
		select {
		case g.bufCh <- ev:
			g.l.Warn("raw publish failed, event buffered",
				applogger.String("pair", ev.Pair),
				applogger.Int("buffered", len(g.bufCh)),
				applogger.Error(err))
			return Buffered, nil
		default:
			g.metrics.RecordError("ingest_buffer_full")
			return "", fmt.Errorf("%w: %v", ErrBufferFull, err)
		}
	}
	g.metrics.RecordLatency("ingest_publish", time.Since(start).Seconds())
	return Accepted, nil
}

// Buffered reports how many events wait for a retry.
func (g *IngestGate) Buffered() int { return len(g.bufCh) }

// Start launches the background flush of buffered events.
func (g *IngestGate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})
	g.mu.Unlock()

	go g.flushLoop(ctx)
}

// Stop ends the flush loop and waits for it.
func (g *IngestGate) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	g.started = false
	close(g.stopCh)
	done := g.doneCh
	g.mu.Unlock()
	<-done
}

func (g *IngestGate) flushLoop(ctx context.Context) {
	defer close(g.doneCh)
	const minBackoff, maxBackoff = 50 * time.Millisecond, 2 * time.Second
	backoff := minBackoff
	for {
		select {
		case <-g.stopCh:
			return
		case <-ctx.Done():
			return
		case ev := <-g.bufCh:
			err := g.pub.PublishEvent(ctx, ev)
			if err == nil {
				backoff = minBackoff
				continue
			}
			g.metrics.RecordError("ingest_flush")
			// requeue if space; drop otherwise
			select {
			case g.bufCh <- ev:
			default:
				g.metrics.RecordError("ingest_buffer_drop")
				g.l.Error("buffered event dropped", applogger.String("pair", ev.Pair), applogger.Error(err))
			}
			select {
			case <-time.After(backoff):
			case <-g.stopCh:
				return
			case <-ctx.Done():
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
	}
}
