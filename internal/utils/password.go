package utils

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher runs bcrypt on a bounded pool of goroutines.  Request goroutines
// block only on their own hash while at most `workers` hashes run at once.
type Hasher struct {
	cost    int
	sem     *semaphore.Weighted
	observe func(op string, d time.Duration)
}

// NewHasher clamps cost to bcrypt's accepted range and sizes the pool.
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if workers < 1 {
		workers = 1
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// WithObserver registers a callback receiving the duration of each hash or
// compare ("hash", "verify").
func (h *Hasher) WithObserver(fn func(op string, d time.Duration)) *Hasher {
	h.observe = fn
	return h
}

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	var out []byte
	err := h.run(ctx, "hash", func() error {
		b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		out = b
		return err
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify compares plain against hash.  A mismatch is (false, nil); a
// malformed hash or cancelled context is an error.
func (h *Hasher) Verify(ctx context.Context, hash, plain string) (bool, error) {
	var cmpErr error
	err := h.run(ctx, "verify", func() error {
		cmpErr = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		return nil
	})
	if err != nil {
		return false, err
	}
	if errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if cmpErr != nil {
		return false, cmpErr
	}
	return true, nil
}

func (h *Hasher) run(ctx context.Context, op string, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		start := time.Now()
		err := fn()
		if h.observe != nil {
			h.observe(op, time.Since(start))
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
