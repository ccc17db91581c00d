package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		quiet, verbose bool
		wantWarn       bool
		wantDebug      bool
	}{
		{"default", false, false, true, false},
		{"verbose", false, true, true, true},
		{"quiet", true, false, false, false},
		{"verbose wins over quiet", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := newLogger(&buf, tt.quiet, tt.verbose)
			logger.Warn("careful")
			logger.Debug("details")

			out := buf.String()
			if got := strings.Contains(out, "careful"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v: %q", got, tt.wantWarn, out)
			}
			if got := strings.Contains(out, "details"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v: %q", got, tt.wantDebug, out)
			}
		})
	}
}
