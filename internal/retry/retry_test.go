package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDo_Success(t *testing.T) {
	attempts := 0

	got, err := Do(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		attempts++
		return "#EXTM3U", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if got != "#EXTM3U" {
		t.Errorf("expected result, got %q", got)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		retried = append(retried, attempt)
	}

	_, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("connection reset")
		}
		return attempts, nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected OnRetry for attempts 1 and 2, got %v", retried)
	}
}

func TestDo_PermanentError(t *testing.T) {
	notFound := errors.New("HTTP 404: Not Found")
	attempts := 0

	_, err := Do(context.Background(), fastConfig(5), func(context.Context) (string, error) {
		attempts++
		return "", Permanent(notFound)
	})

	if err != notFound {
		t.Errorf("expected the unwrapped permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_MaxAttemptsExceeded(t *testing.T) {
	testErr := errors.New("timeout")
	attempts := 0

	_, err := Do(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		attempts++
		return "", testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected %v, got %v", testErr, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_SingleAttemptByDefault(t *testing.T) {
	attempts := 0

	_, err := Do(context.Background(), DefaultConfig(), func(context.Context) (string, error) {
		attempts++
		return "", errors.New("connection refused")
	})

	if err == nil {
		t.Error("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	Do(context.Background(), Config{}, func(context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, errors.New("x")
	})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	cfg := Config{
		MaxAttempts:       5,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2.0,
	}
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, func(context.Context) (string, error) {
		attempts++
		return "", errors.New("temporary")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}

	base := errors.New("bad request")
	err := Permanent(base)
	if !IsPermanent(err) {
		t.Error("expected IsPermanent")
	}
	if !errors.Is(err, base) {
		t.Error("expected permanent error to unwrap")
	}
	if IsPermanent(base) {
		t.Error("plain error is not permanent")
	}
}

func TestJittered(t *testing.T) {
	backoff := 100 * time.Millisecond

	if got := jittered(backoff, 0); got != backoff {
		t.Errorf("expected %v without jitter, got %v", backoff, got)
	}

	for i := 0; i < 100; i++ {
		got := jittered(backoff, 0.1)
		if got < 90*time.Millisecond || got > 110*time.Millisecond {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
}

func TestBackoff(t *testing.T) {
	cfg := Config{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
	}

	for _, tc := range tests {
		if got := Backoff(tc.attempt, cfg); got != tc.expected {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.expected, got)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxAttempts != 1 {
		t.Errorf("expected MaxAttempts 1, got %d", cfg.MaxAttempts)
	}
	if cfg.BackoffMultiplier != 2.0 {
		t.Errorf("expected BackoffMultiplier 2.0, got %f", cfg.BackoffMultiplier)
	}
}
