package loadbalancer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/toolgate/toolgate/protocol"
)

func TestAdmitRunsFnOnSuccess(t *testing.T) {
	lb := New(Config{MaxRequestsPerSecond: 100, CircuitBreakerThreshold: 5, CircuitBreakerTimeout: time.Second, QueueCapacity: 10})
	result, err := lb.Admit(context.Background(), "s1", "files", "tools/call", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("unexpected result=%v err=%v", result, err)
	}
	if len(lb.Records()) != 1 {
		t.Fatalf("expected 1 record, got %d", len(lb.Records()))
	}
}

func TestAdmitRateLimitsExcess(t *testing.T) {
	lb := New(Config{MaxRequestsPerSecond: 1, CircuitBreakerThreshold: 5, CircuitBreakerTimeout: time.Second, QueueCapacity: 10})
	fn := func(ctx context.Context) (interface{}, error) { return "ok", nil }

	_, err := lb.Admit(context.Background(), "s1", "files", "tools/call", fn)
	if err != nil {
		t.Fatalf("first call should be admitted: %v", err)
	}
	_, err = lb.Admit(context.Background(), "s1", "files", "tools/call", fn)
	if err != protocol.ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAdmitOpensBreakerAfterConsecutiveFailures(t *testing.T) {
	lb := New(Config{MaxRequestsPerSecond: 1000, CircuitBreakerThreshold: 2, CircuitBreakerTimeout: time.Minute, QueueCapacity: 10})
	failing := func(ctx context.Context) (interface{}, error) { return nil, errors.New("backend down") }

	for i := 0; i < 2; i++ {
		if _, err := lb.Admit(context.Background(), "s1", "files", "tools/call", failing); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}

	_, err := lb.Admit(context.Background(), "s1", "files", "tools/call", failing)
	if err != protocol.ErrBreakerOpen {
		t.Fatalf("expected ErrBreakerOpen after threshold, got %v", err)
	}
}

func TestAdmitQueueCapacityRejectsOverflow(t *testing.T) {
	lb := New(Config{MaxRequestsPerSecond: 1000, CircuitBreakerThreshold: 100, CircuitBreakerTimeout: time.Second, QueueCapacity: 1})
	lb.queue <- struct{}{} // simulate one in-flight request holding the queue slot

	_, err := lb.Admit(context.Background(), "s1", "files", "tools/call", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	if err != protocol.ErrRateLimited {
		t.Fatalf("expected queue overflow rejection, got %v", err)
	}
}
