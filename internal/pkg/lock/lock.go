// Package lock serializes operations on one contract.
package lock

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrLocked is returned when a key stays held for the whole wait period.
var ErrLocked = errors.New("contract is being modified by another request")

// Locker acquires exclusive, expiring holds on keys.
type Locker interface {
	// Acquire blocks until the key is free, the wait period passes or ctx
	// ends. The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (func(), error)
}

// ContractKey names the lock of one contract.
func ContractKey(contractID int64) string {
	return "contract:lock:" + strconv.FormatInt(contractID, 10)
}

// Local is an in-process Locker for single-node deployments and tests.
type Local struct {
	wait time.Duration

	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocal creates a Local locker that waits at most wait for a held key.
func NewLocal(wait time.Duration) *Local {
	return &Local{wait: wait, held: make(map[string]chan struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return l.releaser(key, done), nil
		}
		l.mu.Unlock()

		select {
		case <-done:
		case <-timer.C:
			return nil, ErrLocked
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Local) releaser(key string, done chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == done {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(done)
		})
	}
}
