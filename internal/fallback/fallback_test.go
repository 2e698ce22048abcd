package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFirst_StopsAtFirstSuccess(t *testing.T) {
	calls := 0
	attempts := []Attempt[string]{
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("mirror down")
		},
		func(ctx context.Context) (string, error) {
			calls++
			return "second", nil
		},
		func(ctx context.Context) (string, error) {
			calls++
			t.Error("third attempt should never run after a success")
			return "third", nil
		},
	}

	got, err := First(context.Background(), time.Second, attempts)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got != "second" {
		t.Errorf("First() = %q, want %q", got, "second")
	}
	if calls != 2 {
		t.Errorf("attempts called = %d, want 2", calls)
	}
}

func TestFirst_AggregatesAllFailures(t *testing.T) {
	attempts := []Attempt[int]{
		func(ctx context.Context) (int, error) { return 0, errors.New("boom one") },
		func(ctx context.Context) (int, error) { return 0, errors.New("boom two") },
	}

	_, err := First(context.Background(), time.Second, attempts)
	if err == nil {
		t.Fatal("First() expected error when every attempt fails")
	}
	for _, want := range []string{"boom one", "boom two"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("aggregated error %q missing %q", err, want)
		}
	}
}

func TestFirst_PerAttemptTimeout(t *testing.T) {
	attempts := []Attempt[string]{
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		func(ctx context.Context) (string, error) {
			return "fallback", nil
		},
	}

	got, err := First(context.Background(), 10*time.Millisecond, attempts)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got != "fallback" {
		t.Errorf("First() = %q, want %q", got, "fallback")
	}
}

func TestFirst_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	attempts := []Attempt[string]{
		func(ctx context.Context) (string, error) {
			calls++
			cancel()
			return "", errors.New("failed")
		},
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("failed")
		},
	}

	if _, err := First(ctx, time.Second, attempts); err == nil {
		t.Fatal("First() expected error")
	}
	if calls != 1 {
		t.Errorf("attempts called = %d, want 1 after parent cancellation", calls)
	}
}

func TestFirst_NoAttempts(t *testing.T) {
	if _, err := First[string](context.Background(), time.Second, nil); err == nil {
		t.Fatal("First() expected error for empty attempt list")
	}
}
