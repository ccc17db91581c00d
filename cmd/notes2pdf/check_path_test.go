package main

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunCheckPathCmd
// ---------------------------------------------------------------------------

func TestRunCheckPathCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{"relative folder", []string{"exports/2024"}, ExitSuccess, "valid output folder"},
		{"traversal", []string{"a/../../b"}, ExitUsage, "Path traversal"},
		{"absolute", []string{"/tmp/out"}, ExitUsage, "Absolute paths"},
		{"reserved", []string{"out/con/x"}, ExitUsage, "Reserved system names"},
		{"invalid chars", []string{"out<1>"}, ExitUsage, "Invalid characters"},
		{"executable with spaces", []string{"--executable", "/Program Files/typst/typst"}, ExitSuccess, "valid executable path"},
		{"executable bare name", []string{"--executable", "pandoc"}, ExitSuccess, "valid executable path"},
		{"executable metachar", []string{"--executable", "pandoc;rm -rf ~"}, ExitUsage, "Shell metacharacters"},
		{"executable backtick", []string{"--executable", "`whoami`"}, ExitUsage, "Shell metacharacters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, stdout, _ := newTestEnv()

			code := runCheckPathCmd(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestRunCheckPathCmd_HintOnInvalidFolder(t *testing.T) {
	t.Parallel()

	env, stdout, _ := newTestEnv()
	runCheckPathCmd([]string{"../out"}, env)

	if !strings.Contains(stdout.String(), "hint:") {
		t.Errorf("expected hint, got %q", stdout.String())
	}
}
