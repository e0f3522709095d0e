package netmon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnkeeper/learnkeeper/internal/client/netmon"
	"github.com/learnkeeper/learnkeeper/internal/logging"
)

// fakePinger returns the configured errors in sequence, then repeats the
// last one.
type fakePinger struct {
	mu    sync.Mutex
	errs  []error
	pos   int
	calls int
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.pos < len(f.errs)-1 {
		err := f.errs[f.pos]
		f.pos++
		return err
	}
	return f.errs[len(f.errs)-1]
}

func (f *fakePinger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitTransition(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity transition")
		return false
	}
}

func TestStartsOffline(t *testing.T) {
	m := netmon.NewMonitor(&fakePinger{errs: []error{nil}}, time.Hour, logging.Discard())
	assert.False(t, m.IsOnline())
}

func TestDetectsOnline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := netmon.NewMonitor(&fakePinger{errs: []error{nil}}, 10*time.Millisecond, logging.Discard())
	m.Start(ctx)

	assert.True(t, waitTransition(t, m.Transitions()))
	assert.True(t, m.IsOnline())
}

func TestDetectsLossAndRecovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	down := errors.New("connection refused")
	m := netmon.NewMonitor(&fakePinger{errs: []error{nil, down, nil}}, 10*time.Millisecond, logging.Discard())
	m.Start(ctx)

	assert.True(t, waitTransition(t, m.Transitions()))
	assert.False(t, waitTransition(t, m.Transitions()))
	assert.True(t, waitTransition(t, m.Transitions()))
	assert.True(t, m.IsOnline())
}

func TestNoTransitionWhenStateUnchanged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := netmon.NewMonitor(&fakePinger{errs: []error{nil}}, 5*time.Millisecond, logging.Discard())
	m.Start(ctx)

	require.True(t, waitTransition(t, m.Transitions()))

	// The pinger keeps succeeding, so no further transitions arrive.
	select {
	case v := <-m.Transitions():
		t.Fatalf("unexpected transition %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProbeLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &fakePinger{errs: []error{nil}}
	m := netmon.NewMonitor(p, 5*time.Millisecond, logging.Discard())
	m.Start(ctx)
	require.True(t, waitTransition(t, m.Transitions()))

	cancel()
	time.Sleep(20 * time.Millisecond)

	calls := p.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, p.callCount())
}

func TestUnreadTransitionSuperseded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	down := errors.New("connection refused")
	p := &fakePinger{errs: []error{nil, down}}
	m := netmon.NewMonitor(p, 5*time.Millisecond, logging.Discard())
	m.Start(ctx)

	// Nobody reads while the state flips online and back offline. The
	// buffered transition must carry the latest flip, not the first one.
	require.Eventually(t, func() bool { return p.callCount() >= 3 },
		2*time.Second, time.Millisecond)

	assert.False(t, waitTransition(t, m.Transitions()))
	assert.False(t, m.IsOnline())
}
