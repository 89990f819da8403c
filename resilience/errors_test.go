package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrMaxRetriesExceeded", ErrMaxRetriesExceeded},
		{"ErrInvalidConfig", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
		})
	}
}

func TestRateLimiterConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimiterConfig
		wantErr bool
	}{
		{"zero uses defaults", RateLimiterConfig{}, false},
		{"valid", RateLimiterConfig{Window: time.Second, MaxRequests: 3}, false},
		{"negative window", RateLimiterConfig{Window: -time.Second, MaxRequests: 3}, true},
		{"negative limit", RateLimiterConfig{Window: time.Second, MaxRequests: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
