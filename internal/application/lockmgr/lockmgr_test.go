package lockmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	m := New(100, time.Millisecond)
	ctx := context.Background()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, ok := m.Acquire(ctx, "wallet-1")
			require.True(t, ok)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestAcquireIndependentKeysDoNotBlock(t *testing.T) {
	m := New(1, time.Millisecond)
	ctx := context.Background()

	unlockA, ok := m.Acquire(ctx, "wallet-a")
	require.True(t, ok)
	defer unlockA()

	unlockB, ok := m.Acquire(ctx, "wallet-b")
	require.True(t, ok)
	unlockB()
}

func TestAcquireGivesUpAfterBoundedAttempts(t *testing.T) {
	m := New(3, time.Millisecond)
	ctx := context.Background()

	unlock, ok := m.Acquire(ctx, "wallet-1")
	require.True(t, ok)
	defer unlock()

	_, ok = m.Acquire(ctx, "wallet-1")
	assert.False(t, ok)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	m := New(1000, 10*time.Millisecond)

	unlock, ok := m.Acquire(context.Background(), "wallet-1")
	require.True(t, ok)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok = m.Acquire(ctx, "wallet-1")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEntriesAreReleased(t *testing.T) {
	m := New(3, time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		unlock, ok := m.Acquire(ctx, "wallet-1")
		require.True(t, ok)
		unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.entries)
}
