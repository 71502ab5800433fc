package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/itohio/goacs712/pkg/config"
	"github.com/itohio/goacs712/pkg/sample"
	"github.com/stretchr/testify/assert"
)

// TestMeter_GracefulShutdown_NoCallbacksAfterClose tests that meter stops sending
// callbacks after the input channel is closed.
func TestMeter_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	m := New(config.Default())

	var (
		mu            sync.Mutex
		callbackCount int
	)
	m.OnUpdate(func(samples []sample.Sample, stats Stats) {
		mu.Lock()
		callbackCount++
		mu.Unlock()
	})

	input := make(chan sample.Sample, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.ProcessSamples(input)
	}()

	now := time.Now()
	for i := 0; i < 3; i++ {
		input <- sample.Sample{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Amps:      float64(i) * 0.1,
		}
	}
	close(input)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessSamples did not finish within timeout")
	}

	mu.Lock()
	initialCount := callbackCount
	mu.Unlock()
	assert.Equal(t, 3, initialCount)

	// Samples arriving after shutdown are stored but not announced
	m.processSample(sample.Sample{Timestamp: now.Add(3 * time.Second), Amps: 1.0})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, initialCount, callbackCount, "No callbacks should be sent after channel closes")
	assert.Len(t, m.Samples(), 4)
}

// TestMeter_ResetShutdown tests that ResetShutdown allows callbacks again.
func TestMeter_ResetShutdown(t *testing.T) {
	m := New(config.Default())

	var (
		mu            sync.Mutex
		callbackCount int
	)
	m.OnUpdate(func(samples []sample.Sample, stats Stats) {
		mu.Lock()
		callbackCount++
		mu.Unlock()
	})

	run := func(values ...float64) {
		input := make(chan sample.Sample, len(values))
		now := time.Now()
		for i, v := range values {
			input <- sample.Sample{Timestamp: now.Add(time.Duration(i) * time.Millisecond), Amps: v}
		}
		close(input)
		m.ProcessSamples(input)
	}

	run(0.1, 0.2)
	mu.Lock()
	count1 := callbackCount
	mu.Unlock()

	run(0.3)
	mu.Lock()
	assert.Equal(t, count1, callbackCount, "shutdown meter stays silent")
	mu.Unlock()

	m.ResetShutdown()
	run(0.4, 0.5)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, count1+2, callbackCount, "Callbacks should resume after ResetShutdown")
}
