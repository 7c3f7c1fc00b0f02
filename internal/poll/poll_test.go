package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilSettlesImmediately(t *testing.T) {
	cfg := Config{Attempts: 5, Delay: time.Millisecond}

	calls := 0
	result, err := Until(context.Background(), cfg, func(ctx context.Context, attempt int, final bool) (string, bool, error) {
		calls++
		return "settled", true, nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result.Value != "settled" {
		t.Errorf("Expected 'settled', got %s", result.Value)
	}
	if result.Exhausted {
		t.Error("Expected not exhausted")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestUntilSettlesAfterAttempts(t *testing.T) {
	cfg := Config{Attempts: 5, Delay: time.Millisecond}

	calls := 0
	result, err := Until(context.Background(), cfg, func(ctx context.Context, attempt int, final bool) (int, bool, error) {
		calls++
		if calls < 3 {
			return 0, false, nil
		}
		return 7, true, nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result.Value != 7 {
		t.Errorf("Expected 7, got %d", result.Value)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestUntilExhaustionKeepsLastValue(t *testing.T) {
	cfg := Config{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	result, err := Until(context.Background(), cfg, func(ctx context.Context, attempt int, final bool) (string, bool, error) {
		calls++
		return "pending", false, nil
	})

	if err != nil {
		t.Errorf("Exhaustion must not be an error, got %v", err)
	}
	if !result.Exhausted {
		t.Error("Expected exhausted")
	}
	if result.Value != "pending" {
		t.Errorf("Expected last value 'pending', got %s", result.Value)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestUntilFinalFlag(t *testing.T) {
	cfg := Config{Attempts: 3, Delay: time.Millisecond}

	var finals []bool
	_, err := Until(context.Background(), cfg, func(ctx context.Context, attempt int, final bool) (struct{}, bool, error) {
		finals = append(finals, final)
		return struct{}{}, false, nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []bool{false, false, true}
	if len(finals) != len(want) {
		t.Fatalf("Expected %d attempts, got %d", len(want), len(finals))
	}
	for i := range want {
		if finals[i] != want[i] {
			t.Errorf("Attempt %d final = %v, want %v", i+1, finals[i], want[i])
		}
	}
}

func TestUntilStepErrorAborts(t *testing.T) {
	cfg := Config{Attempts: 5, Delay: time.Millisecond}
	boom := errors.New("remote failure")

	calls := 0
	result, err := Until(context.Background(), cfg, func(ctx context.Context, attempt int, final bool) (string, bool, error) {
		calls++
		if calls == 2 {
			return "", false, boom
		}
		return "partial", false, nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped step error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
	if result.Value != "partial" {
		t.Errorf("Expected last good value 'partial', got %q", result.Value)
	}
}

func TestUntilContextCancellation(t *testing.T) {
	cfg := Config{Attempts: 10, Delay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Until(ctx, cfg, func(ctx context.Context, attempt int, final bool) (string, bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return "", false, nil
	})

	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls > 2 {
		t.Errorf("Expected at most 2 calls after cancellation, got %d", calls)
	}
}

func TestUntilContextTimeoutDuringDelay(t *testing.T) {
	cfg := Config{Attempts: 10, Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Until(ctx, cfg, func(ctx context.Context, attempt int, final bool) (string, bool, error) {
		return "", false, nil
	})
	elapsed := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Expected to stop around 50ms, took %v", elapsed)
	}
}
