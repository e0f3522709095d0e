// Package netmon watches server reachability and reports connectivity
// transitions to interested components.
package netmon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/learnkeeper/learnkeeper/internal/logging"
)

// Pinger probes the server. A nil error means the server answered.
type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 3 * time.Second

// Monitor polls a Pinger at a fixed interval and keeps the latest
// reachability verdict. Transitions between online and offline are
// published on a buffered channel; if nobody is reading, the newest
// transition is dropped rather than blocking the probe loop.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	logger   logging.Logger

	online      atomic.Bool
	transitions chan bool

	startOnce sync.Once
}

func NewMonitor(pinger Pinger, interval time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		pinger:      pinger,
		interval:    interval,
		logger:      logger,
		transitions: make(chan bool, 1),
	}
}

// IsOnline reports the verdict of the most recent probe. Before the first
// probe completes the monitor assumes offline.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// Transitions delivers true when connectivity is regained and false when it
// is lost. Only state changes are published.
func (m *Monitor) Transitions() <-chan bool {
	return m.transitions
}

// Start launches the probe loop. It probes once immediately, then on every
// tick, and returns when ctx is cancelled. Start may be called once.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	nowOnline := err == nil
	if m.online.Swap(nowOnline) == nowOnline {
		return
	}

	if nowOnline {
		m.logger.Info(ctx, "connectivity regained")
	} else {
		m.logger.Warn(ctx, "connectivity lost", "error", err)
	}

	// An unread transition is superseded by this one, so drop it first.
	// The probe loop is the only sender, making the send after the drain
	// safe on the one-slot channel.
	select {
	case <-m.transitions:
	default:
	}
	m.transitions <- nowOnline
}
