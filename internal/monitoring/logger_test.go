package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerNilMutesOutput(t *testing.T) {
	defer SetLogger(nil)

	var captured []string
	SetLogger(func(format string, v ...interface{}) {
		captured = append(captured, fmt.Sprintf(format, v...))
	})

	Logf("frame %d", 7)
	if len(captured) != 1 || captured[0] != "frame 7" {
		t.Fatalf("expected one captured line, got %v", captured)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(captured) != 1 {
		t.Errorf("nil logger should be a no-op, got %v", captured)
	}
}

func TestDebugfGatedByFlag(t *testing.T) {
	defer SetLogger(nil)
	defer func() { Debug = false }()

	var count int
	SetLogger(func(format string, v ...interface{}) { count++ })

	Debug = false
	Debugf("hidden")
	if count != 0 {
		t.Errorf("Debugf fired with Debug unset")
	}

	Debug = true
	Debugf("visible")
	if count != 1 {
		t.Errorf("Debugf did not fire with Debug set, count=%d", count)
	}
}
