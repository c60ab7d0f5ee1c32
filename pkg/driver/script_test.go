package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/remedyqa/remedy/pkg/types"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "login.test.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestLoadScript(t *testing.T) {
	path := writeScript(t, `
name: login works
url: https://app.example.com/login
steps:
  - fill: { selector: "#user", value: "bob" }
  - fill: { selector: "#pass", value: "hunter2" }
  - click: "#submit"
  - wait: { selector: ".dashboard", ms: 5000 }
  - assert_text: { selector: ".welcome", contains: "Welcome" }
  - assert_visible: ".nav"
`)

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript failed: %v", err)
	}

	if script.Name != "login works" {
		t.Errorf("Name = %q, want %q", script.Name, "login works")
	}
	if len(script.Steps) != 6 {
		t.Fatalf("got %d steps, want 6", len(script.Steps))
	}

	wantKinds := []string{"fill", "fill", "click", "wait", "assert_text", "assert_visible"}
	for i, want := range wantKinds {
		if got := script.Steps[i].Kind(); got != want {
			t.Errorf("step %d kind = %q, want %q", i, got, want)
		}
	}
}

func TestLoadScriptDefaultsNameFromFile(t *testing.T) {
	path := writeScript(t, `
url: https://example.com
steps:
  - click: "#go"
`)

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript failed: %v", err)
	}
	if script.Name != "login.test" {
		t.Errorf("Name = %q, want %q", script.Name, "login.test")
	}
}

func TestLoadScriptRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing url", "steps:\n  - click: \"#go\"\n"},
		{"no steps", "url: https://example.com\n"},
		{"empty step", "url: https://example.com\nsteps:\n  - {}\n"},
		{"two actions in one step", "url: https://example.com\nsteps:\n  - click: \"#a\"\n    press: Enter\n"},
		{"fill without selector", "url: https://example.com\nsteps:\n  - fill: { value: x }\n"},
		{"wait without selector or ms", "url: https://example.com\nsteps:\n  - wait: {}\n"},
		{"assert_text without expectation", "url: https://example.com\nsteps:\n  - assert_text: { selector: \".msg\" }\n"},
		{"invalid yaml", "url: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.content)
			_, err := LoadScript(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var derr *types.DriverError
			if !errors.As(err, &derr) {
				t.Fatalf("expected *DriverError, got %T", err)
			}
			if derr.Kind != types.DriverErrScript {
				t.Errorf("Kind = %s, want %s", derr.Kind, types.DriverErrScript)
			}
		})
	}
}

func TestLoadScriptMissingFile(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "nope.test.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
