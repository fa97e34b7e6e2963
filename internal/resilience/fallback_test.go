package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		if v == "primary" {
			return errTest
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary", called)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("secondary", "secondary")

	err := fg.Execute(context.Background(), func(v string) error {
		return errTest
	})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("secondary", "secondary")

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	// Now the primary's breaker should be open; calls should go to secondary.
	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary (primary circuit should be open)", called)
	}
}

func TestExecuteWithResult_Success(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		if v == 10 {
			return "from-ten", nil
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-ten" {
		t.Fatalf("result = %q, want from-ten", result)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_PermanentErrorStops(t *testing.T) {
	errBadInput := errors.New("bad input")
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
		Permanent:      func(err error) bool { return errors.Is(err, errBadInput) },
	})
	fg.AddFallback("secondary", "secondary")

	var calls []string
	err := fg.Execute(context.Background(), func(v string) error {
		calls = append(calls, v)
		return errBadInput
	})
	if !errors.Is(err, errBadInput) || errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want bare errBadInput", err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want only primary", calls)
	}
	if st := fg.States()["primary"]; st != StateClosed {
		t.Fatalf("primary state = %v, want closed", st)
	}
}

func TestFallbackGroup_CanceledContext(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := fg.Execute(ctx, func(string) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("fn should not run with a canceled context")
	}
}

func TestFallbackGroup_AllFailReportsEveryProvider(t *testing.T) {
	errSecondary := errors.New("secondary down")
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	err := fg.Execute(context.Background(), func(v string) error {
		if v == "secondary" {
			return errSecondary
		}
		return errTest
	})
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, errSecondary) || !errors.Is(err, errTest) {
		t.Fatalf("err = %v, want ErrAllFailed wrapping both failures", err)
	}
	for _, name := range []string{"primary: ", "secondary: "} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("err %q does not name %q", err, name)
		}
	}
}

func TestFallbackGroup_Available(t *testing.T) {
	fg := NewFallbackGroup("a", "a", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.AddFallback("b", "b")
	if !fg.Available() {
		t.Fatal("fresh group unavailable")
	}
	_ = fg.Execute(context.Background(), func(string) error { return errTest })
	if fg.Available() {
		t.Fatalf("group available with states %v", fg.States())
	}
}

func TestFallbackGroup_NamesAndStates(t *testing.T) {
	fg := NewFallbackGroup(1, "whisper-server", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.AddFallback("openai", 2)

	_ = fg.Execute(context.Background(), func(v int) error {
		if v == 1 {
			return errTest
		}
		return nil
	})
	names := fg.Names()
	if len(names) != 2 || names[0] != "whisper-server" || names[1] != "openai" {
		t.Fatalf("names = %v", names)
	}
	st := fg.States()
	if st["whisper-server"] != StateOpen || st["openai"] != StateClosed {
		t.Fatalf("states = %v", st)
	}
}
