package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(timeout time.Duration) *Handler {
	return New(timeout, logger.Discard())
}

func TestShutdown_RunsHooksInReverseOrder(t *testing.T) {
	h := newTestHandler(time.Second)

	var order []string
	for _, name := range []string{"database", "legacy", "http"} {
		name := name
		h.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "legacy", "database"}, order)
	assert.True(t, h.IsShuttingDown())
}

func TestShutdown_ContinuesAfterFailure(t *testing.T) {
	h := newTestHandler(time.Second)
	closeErr := errors.New("bolt: database not open")

	ran := false
	h.Register("database", func(context.Context) error {
		ran = true
		return nil
	})
	h.Register("legacy", func(context.Context) error { return closeErr })

	err := h.Shutdown()

	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.Contains(t, err.Error(), "legacy")
	assert.True(t, ran, "hooks after a failing hook must still run")
}

func TestShutdown_Timeout(t *testing.T) {
	h := newTestHandler(20 * time.Millisecond)

	skipped := true
	h.Register("database", func(context.Context) error {
		skipped = false
		return nil
	})
	h.Register("http", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.Shutdown()

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, skipped, "hooks after the deadline are not started")
}

func TestShutdown_Once(t *testing.T) {
	h := newTestHandler(time.Second)

	calls := 0
	h.Register("http", func(context.Context) error {
		calls++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Shutdown()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	select {
	case <-h.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestRegisterCloser(t *testing.T) {
	h := newTestHandler(time.Second)
	c := &closer{}

	h.RegisterCloser("kv", c)

	require.NoError(t, h.Shutdown())
	assert.True(t, c.closed)
}

func TestWait_TriggerShutdown(t *testing.T) {
	h := newTestHandler(time.Second)

	closed := make(chan struct{})
	h.Register("http", func(context.Context) error {
		close(closed)
		return nil
	})

	go h.TriggerShutdown()

	require.NoError(t, h.Wait(context.Background()))
	<-closed
}

func TestWait_ContextCancelled(t *testing.T) {
	h := newTestHandler(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, h.Wait(ctx))
	assert.True(t, h.IsShuttingDown())
}
