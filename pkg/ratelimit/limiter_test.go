package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		rate, burst   float64
		expectedRate  float64
		expectedBurst float64
	}{
		{"explicit", 5, 10, 5, 10},
		{"zero rate", 0, 0, 10, 20},
		{"burst below rate", 10, 2, 10, 10},
		{"negative burst", 4, -1, 4, 8},
		{"fractional burst", 0.5, 0.5, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, tt.burst)
			if rl.Rate() != tt.expectedRate {
				t.Errorf("expected rate %v, got %v", tt.expectedRate, rl.Rate())
			}
			if rl.Burst() != tt.expectedBurst {
				t.Errorf("expected burst %v, got %v", tt.expectedBurst, rl.Burst())
			}
		})
	}
}

func TestRateLimiter_FractionalBurstAllowsWait(t *testing.T) {
	rl := NewRateLimiter(0.5, 0.5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait should pass on a fresh limiter: %v", err)
	}
}

func TestRateLimiter_AllowExhaustsBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("4th request should be rejected")
	}
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if !rl.Allow() {
		t.Fatal("first request should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error when context deadline is shorter than refill")
	}
}

func TestRateLimiter_WaitNZero(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if err := rl.WaitN(context.Background(), 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(5, 10)
	rl.SetRate(20)
	if rl.Rate() != 20 {
		t.Errorf("expected rate 20, got %v", rl.Rate())
	}
	rl.SetRate(-1)
	if rl.Rate() != 20 {
		t.Errorf("negative rate must be ignored, got %v", rl.Rate())
	}
}

func TestForVenue(t *testing.T) {
	if got := ForVenue("Coinbase").Rate(); got != 30 {
		t.Errorf("coinbase rate: expected 30, got %v", got)
	}
	if got := ForVenue("unknown").Rate(); got != 10 {
		t.Errorf("default rate: expected 10, got %v", got)
	}
}
