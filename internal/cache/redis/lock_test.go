package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepLockAliveRefreshesUntilStopped(t *testing.T) {
	stop := make(chan struct{})
	calls := make(chan struct{}, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		keepLockAlive(context.Background(), stop, time.Millisecond, func(context.Context) bool {
			calls <- struct{}{}
			return true
		})
	}()

	// Renewal keeps firing while the lock is held.
	for i := 0; i < 3; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("refresh was not called")
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not exit after stop")
	}
}

func TestKeepLockAliveExitsWhenLockLost(t *testing.T) {
	calls := 0
	done := make(chan struct{})

	go func() {
		defer close(done)
		keepLockAlive(context.Background(), make(chan struct{}), time.Millisecond, func(context.Context) bool {
			calls++
			return calls < 3
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not exit after losing the lock")
	}
	assert.Equal(t, 3, calls)
}

func TestKeepLockAliveExitsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		keepLockAlive(ctx, make(chan struct{}), time.Hour, func(context.Context) bool {
			require.Fail(t, "refresh should not run")
			return false
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not exit after context cancel")
	}
}
