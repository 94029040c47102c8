package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := h.Verify(ctx, hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, hash, "wrong-pass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	a, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	ok, err := h.Verify(context.Background(), "not-a-bcrypt-hash", "x")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestHasher_CostIsClamped(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewHasher(1, 1).cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99, 1).cost)
}

func TestHasher_CancelledWhileQueued(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, "secret1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHasher_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	h := NewHasher(bcrypt.MinCost, 2)
	h.WithObserver(func(string, time.Duration) {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.run(context.Background(), "hash", func() error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	require.NoError(t, err)
	b, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)

	hx, err := RandomHex(4)
	require.NoError(t, err)
	assert.Len(t, hx, 8)
}
