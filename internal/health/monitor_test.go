package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/acdb/internal/transport"
	"github.com/dreamware/acdb/internal/transport/transporttest"
)

const probePath = "aircraft_types/icao_aircraft_types.json"

// TestNewMonitor verifies the initial state
func TestNewMonitor(t *testing.T) {
	mon := NewMonitor(transporttest.NewFetcher(), probePath, time.Second, logr.Discard())

	rep := mon.Report()
	assert.Equal(t, StatusUnknown, rep.Status)
	assert.Equal(t, probePath, rep.Target)
	assert.Zero(t, rep.ConsecutiveFails)
	assert.True(t, mon.Healthy())
	assert.Equal(t, DefaultMaxFailures, mon.maxFailures)
}

// TestCheckHealthy tests a successful probe
func TestCheckHealthy(t *testing.T) {
	f := transporttest.NewFetcher()
	f.Set(probePath, `{}`)
	mon := NewMonitor(f, probePath, time.Second, logr.Discard())

	require.NoError(t, mon.Check(context.Background()))

	rep := mon.Report()
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.False(t, rep.LastHealthy.IsZero())
	assert.Equal(t, rep.LastCheck, rep.LastHealthy)
	assert.Equal(t, 1, f.Calls(probePath))
}

// TestCheckFailureThreshold tests that the database is marked unhealthy only
// after consecutive failures reach the threshold
func TestCheckFailureThreshold(t *testing.T) {
	f := transporttest.NewFetcher()
	mon := NewMonitor(f, probePath, time.Second, logr.Discard())

	var mu sync.Mutex
	var changes []Status
	mon.SetOnChange(func(s Status) {
		mu.Lock()
		changes = append(changes, s)
		mu.Unlock()
	})

	for i := 1; i < DefaultMaxFailures; i++ {
		err := mon.Check(context.Background())
		require.Error(t, err)
		assert.Equal(t, StatusUnknown, mon.Report().Status)
		assert.Equal(t, i, mon.Report().ConsecutiveFails)
	}

	err := mon.Check(context.Background())
	var fe *transport.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)

	rep := mon.Report()
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.Equal(t, DefaultMaxFailures, rep.ConsecutiveFails)
	assert.NotEmpty(t, rep.LastError)
	assert.False(t, mon.Healthy())

	// recovery resets the counter
	f.Set(probePath, `{}`)
	require.NoError(t, mon.Check(context.Background()))
	rep = mon.Report()
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.Zero(t, rep.ConsecutiveFails)
	assert.Empty(t, rep.LastError)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusUnhealthy, StatusHealthy}, changes)
}

// TestRun tests periodic probing and shutdown
func TestRun(t *testing.T) {
	f := transporttest.NewFetcher()
	f.Set(probePath, `{}`)
	mon := NewMonitor(f, probePath, 20*time.Millisecond, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.Calls(probePath) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, StatusHealthy, mon.Report().Status)
}
