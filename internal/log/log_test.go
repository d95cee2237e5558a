package log

import (
	"testing"
)

func TestNew(t *testing.T) {
	logger := New(false)
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}

	logger.Debug("test debug")
	logger.Info("test info")
	logger.Warn("test warn")
	logger.Error("test error")

	verboseLogger := New(true)
	if verboseLogger == nil {
		t.Fatal("Verbose logger should not be nil")
	}
	verboseLogger.Debug("test debug verbose")
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger == nil {
		t.Fatal("Nop logger should not be nil")
	}
	logger.Error("should be discarded")
}

func TestWith(t *testing.T) {
	logger := Nop().With("appId", "com.webos.app.browser")
	if logger == nil {
		t.Fatal("With() should not return nil")
	}
	logger.Info("launching")
}
