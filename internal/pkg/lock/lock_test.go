package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExcludes(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, ContractKey(1))
	require.NoError(t, err)

	_, err = l.Acquire(ctx, ContractKey(1))
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, ContractKey(2))
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, ContractKey(1))
	require.NoError(t, err)
	again()
}

func TestLocalWaitsForRelease(t *testing.T) {
	l := NewLocal(time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	second()
}

func TestLocalSerializesWriters(t *testing.T) {
	l := NewLocal(5 * time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	active, maxActive := 0, 0
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "k")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal(time.Minute)
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
