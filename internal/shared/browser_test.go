package shared

import (
	"errors"
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() { getRuntime, startCommand = origRuntime, origStart })

	var started []string
	startCommand = func(cmd *exec.Cmd) error {
		started = cmd.Args
		return nil
	}

	t.Run("linux uses xdg-open", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		if err := OpenBrowser("https://accounts.google.com/o/oauth2/auth?state=x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(started) != 2 || started[0] != "xdg-open" {
			t.Errorf("expected xdg-open invocation, got %v", started)
		}
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		for _, raw := range []string{"file:///etc/passwd", "javascript:alert(1)", "not a url", ""} {
			if err := OpenBrowser(raw); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("OpenBrowser(%q) = %v, want ErrInvalidArgument", raw, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("http://localhost:3000"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
