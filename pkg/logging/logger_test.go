package logging

import (
	"os"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the package at a temp log directory and resets the
// session state, restoring everything on cleanup.
func setupTestDir(t *testing.T) {
	t.Helper()

	tempDir := t.TempDir()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID
	origLevel := globalLevel

	// sync.Once values must not be copied; record whether each had fired
	// (probing fires it, which is fine since it is replaced just below).
	origInitOnceFired := true
	initOnce.Do(func() { origInitOnceFired = false })
	origSessionIDOnceFired := true
	sessionIDOnce.Do(func() { origSessionIDOnceFired = false })

	logDir = tempDir
	initErr = nil
	initOnce = sync.Once{}
	initOnce.Do(func() {}) // mark initialized so initLogDirectory keeps tempDir
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		if origInitOnceFired {
			initOnce.Do(func() {})
		}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
		if origSessionIDOnceFired {
			sessionIDOnce.Do(func() {})
		}
		globalLevel = origLevel
	})
}

func TestNewLoggerWritesToSessionFile(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("driver")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Infof("attempt %d started", 1)
	logger.Close()

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "[driver]") {
		t.Errorf("log entry missing component tag: %q", content)
	}
	if !strings.Contains(content, "[INFO]") {
		t.Errorf("log entry missing level: %q", content)
	}
	if !strings.Contains(content, "attempt 1 started") {
		t.Errorf("log entry missing message: %q", content)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	setupTestDir(t)
	SetGlobalLevel(LevelWarn)

	logger, err := NewLogger("oracle")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("visible warning")
	logger.Close()

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "hidden debug") || strings.Contains(content, "hidden info") {
		t.Errorf("entries below warn level were written: %q", content)
	}
	if !strings.Contains(content, "visible warning") {
		t.Errorf("warn entry missing: %q", content)
	}
}

func TestSharedSessionIDAcrossComponents(t *testing.T) {
	setupTestDir(t)

	a, err := NewLogger("driver")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer a.Close()

	b, err := NewLogger("healer")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer b.Close()

	if a.SessionID() != b.SessionID() {
		t.Errorf("components got different session IDs: %s vs %s", a.SessionID(), b.SessionID())
	}
	if a.LogPath() != b.LogPath() {
		t.Errorf("components got different log files: %s vs %s", a.LogPath(), b.LogPath())
	}
}
