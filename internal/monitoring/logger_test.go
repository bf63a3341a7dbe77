package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestRecorder(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	rec := &Recorder{}
	SetLogger(rec.Logf)
	Logf("[Batch] scene=%s frames=%d", "scene-0001", 40)
	Logf("[Batch] done")

	lines := rec.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "[Batch] scene=scene-0001 frames=40" {
		t.Errorf("line 0 = %q", lines[0])
	}

	lines[0] = "mutated"
	if rec.Lines()[0] == "mutated" {
		t.Error("Lines must return a copy")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
