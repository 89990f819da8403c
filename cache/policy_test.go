package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"override used", DefaultPolicy(), time.Minute, time.Minute},
		{"default when zero", DefaultPolicy(), 0, 5 * time.Minute},
		{"default when negative", DefaultPolicy(), -time.Second, 5 * time.Minute},
		{"clamped to max", DefaultPolicy(), 2 * time.Hour, time.Hour},
		{"no max", Policy{DefaultTTL: time.Second}, 24 * time.Hour, 24 * time.Hour},
		{"no cache", NoCachePolicy(), 0, 0},
		{"no cache honors override", NoCachePolicy(), time.Minute, time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.EffectiveTTL(tc.override); got != tc.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tc.override, got, tc.want)
			}
		})
	}
}
