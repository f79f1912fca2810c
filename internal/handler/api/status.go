package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const probeTimeout = 2 * time.Second

// Probe reports nil when a dependency is usable.
type Probe func(ctx context.Context) error

// StatusBoard holds the named dependency probes behind GET /api/v1/status.
type StatusBoard struct {
	mu      sync.RWMutex
	probes  map[string]Probe
	started time.Time
}

type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type StatusReport struct {
	Healthy    bool              `json:"healthy"`
	Uptime     string            `json:"uptime"`
	Buffered   int               `json:"buffered_events"`
	Components []ComponentStatus `json:"components"`
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{probes: map[string]Probe{}, started: time.Now()}
}

// Add registers or replaces a probe.
func (b *StatusBoard) Add(name string, p Probe) {
	b.mu.Lock()
	b.probes[name] = p
	b.mu.Unlock()
}

// Check runs every probe concurrently, each bounded by probeTimeout.
func (b *StatusBoard) Check(ctx context.Context) StatusReport {
	b.mu.RLock()
	names := make([]string, 0, len(b.probes))
	for n := range b.probes {
		names = append(names, n)
	}
	probes := make(map[string]Probe, len(b.probes))
	for n, p := range b.probes {
		probes[n] = p
	}
	b.mu.RUnlock()
	sort.Strings(names)

	out := make([]ComponentStatus, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			cs := ComponentStatus{Name: name, Healthy: true}
			if err := probes[name](pctx); err != nil {
				cs.Healthy = false
				cs.Error = err.Error()
			}
			out[i] = cs
			return nil
		})
	}
	_ = g.Wait()

	rep := StatusReport{Healthy: true, Uptime: time.Since(b.started).Round(time.Second).String(), Components: out}
	for _, cs := range out {
		if !cs.Healthy {
			rep.Healthy = false
		}
	}
	return rep
}
