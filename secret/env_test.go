package secret

import (
	"strings"
	"testing"
)

func TestExpandWith(t *testing.T) {
	env := map[string]string{"HOST": "db", "PORT": "5432", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{name: "plain", in: "no vars", want: "no vars"},
		{name: "braced", in: "${HOST}:${PORT}", want: "db:5432"},
		{name: "bare", in: "$HOST/x", want: "db/x"},
		{name: "bare unset", in: "[$NOPE]", want: "[]"},
		{name: "braced empty value", in: "a${EMPTY}b", want: "ab"},
		{name: "escape", in: "$$${HOST}", want: "$db"},
		{name: "escape only", in: "cost: $$5", want: "cost: $5"},
		{name: "lone dollar", in: "5$ and $", want: "5$ and $"},
		{name: "unterminated brace", in: "${HOST", want: "${HOST"},
		{name: "invalid braced name", in: "${1X}", want: "${1X}"},
		{name: "missing", in: "${HOST} ${B} ${A} ${B}", wantErr: "missing required environment variables: A, B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandWith(tt.in, lookup)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expandWith(%q) error = %v, want %q", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandWith(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("expandWith(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("POSTBOARD_TEST_EXPAND", "ok")

	got, err := ExpandEnv("v=${POSTBOARD_TEST_EXPAND}")
	if err != nil {
		t.Fatalf("ExpandEnv() error = %v", err)
	}
	if got != "v=ok" {
		t.Errorf("ExpandEnv() = %q, want v=ok", got)
	}
}
