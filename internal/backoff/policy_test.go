package backoff

import (
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	doubling := Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2}

	tests := []struct {
		name    string
		policy  Policy
		attempt int
		r       float64
		want    time.Duration
	}{
		{"first attempt", doubling, 1, 0.5, 100 * time.Millisecond},
		{"second attempt doubles", doubling, 2, 0.5, 200 * time.Millisecond},
		{"fifth attempt", doubling, 5, 0.5, 1600 * time.Millisecond},
		{"clamped to max", doubling, 20, 0, 10 * time.Second},
		{"attempt zero treated as first", doubling, 0, 0, 100 * time.Millisecond},
		{"factor below one is flat", Policy{Initial: time.Second, Factor: 0.5}, 3, 0, time.Second},
		{"no max", Policy{Initial: time.Second, Factor: 3}, 3, 0, 9 * time.Second},
		{
			name:    "jitter scales with random value",
			policy:  Policy{Initial: time.Second, Max: time.Minute, Factor: 2, Jitter: 0.2},
			attempt: 2,
			r:       0.5,
			want:    2200 * time.Millisecond,
		},
		{
			name:    "jitter cannot exceed max",
			policy:  Policy{Initial: time.Second, Max: 1050 * time.Millisecond, Factor: 1, Jitter: 0.5},
			attempt: 1,
			r:       0.99,
			want:    1050 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.delay(tt.attempt, tt.r); got != tt.want {
				t.Errorf("delay(%d, %v) = %v, want %v", tt.attempt, tt.r, got, tt.want)
			}
		})
	}
}

func TestPolicy_DelayJitterRange(t *testing.T) {
	policy := Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: 0.2}
	for i := 0; i < 100; i++ {
		got := policy.Delay(1)
		if got < 100*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want in [100ms, 120ms]", got)
		}
	}
}

func TestGenerationPolicy(t *testing.T) {
	p := GenerationPolicy()
	want := Policy{Initial: 500 * time.Millisecond, Max: 8 * time.Second, Factor: 2, Jitter: 0.2}
	if p != want {
		t.Errorf("GenerationPolicy() = %+v, want %+v", p, want)
	}
	if p.IsZero() || !(Policy{}).IsZero() {
		t.Error("IsZero() is wrong")
	}
}
