package observability_test

import (
	"testing"

	"github.com/rs/zerolog"

	"costa_listings/internal/adapters/observability"
)

func TestNewLoggerLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"prod", "warn", zerolog.WarnLevel},
		{"dev", "DEBUG", zerolog.DebugLevel},
		{"prod", "", zerolog.InfoLevel},
		{"development", "loud", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := observability.NewLogger(tc.env, tc.level).GetLevel(); got != tc.want {
			t.Fatalf("NewLogger(%q, %q) level = %v, want %v", tc.env, tc.level, got, tc.want)
		}
	}
}
