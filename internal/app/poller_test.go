package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type countingPinger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestStartKeepWarm_PingsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pinger := &countingPinger{}
	StartKeepWarm(ctx, pinger, time.Millisecond, zerolog.Nop())

	deadline := time.Now().Add(2 * time.Second)
	for pinger.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("pings = %d, want at least 3", pinger.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	time.Sleep(20 * time.Millisecond)
	settled := pinger.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := pinger.calls.Load(); got != settled {
		t.Fatalf("pings continued after cancel: %d -> %d", settled, got)
	}
}

func TestStartKeepWarm_BacksOffOnFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pinger := &countingPinger{err: errors.New("unreachable")}
	StartKeepWarm(ctx, pinger, 10*time.Millisecond, zerolog.Nop())

	time.Sleep(100 * time.Millisecond)
	// 10ms, 20ms, 40ms, 80ms... leaves room for only a handful of pings.
	if got := pinger.calls.Load(); got < 1 || got > 5 {
		t.Fatalf("pings = %d, want between 1 and 5", got)
	}
}
