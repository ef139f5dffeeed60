package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlight_ConcurrentCallersShareResult(t *testing.T) {
	f := NewFlight()
	var calls atomic.Int32
	release := make(chan struct{})

	const callers = 10
	results := make([]any, callers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, _, err := f.Do(context.Background(), "wallet-1:ethereum:usdc", func(context.Context) (any, error) {
				calls.Add(1)
				<-release
				return "liq-1", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "liq-1", r)
	}
}

func TestMutex_SerializesSameKey(t *testing.T) {
	m := NewMutex()
	var inside atomic.Int32
	var overlapped atomic.Bool
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "wallet-1")
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlapped.Load())
	assert.Empty(t, m.slots)
}

func TestMutex_HonorsContext(t *testing.T) {
	m := NewMutex()
	unlock, err := m.Lock(context.Background(), "wallet-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "wallet-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMutex_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewMutex()
	unlockA, err := m.Lock(context.Background(), "wallet-a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "wallet-b")
	require.NoError(t, err)
	unlockB()
}
