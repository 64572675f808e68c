package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Enabled()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetEnabled(prev)
		SetOutput(&bytes.Buffer{})
	})
	return &buf
}

func TestLog_DisabledWritesNothing(t *testing.T) {
	buf := capture(t)
	SetEnabled(false)
	Log("hidden %d", 1)
	LogTiming("hidden", time.Millisecond)
	LogFunc("hidden")()
	LogEnterExit("hidden")()
	Dump("hidden", 1)
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}

func TestLog_EnabledFormats(t *testing.T) {
	buf := capture(t)
	SetEnabled(true)
	Log("painted %d nodes", 42)
	LogIf(false, "skipped")
	LogIf(true, "kept")
	Dump("zoom", 2.5)

	out := buf.String()
	for _, want := range []string{"painted 42 nodes", "kept", "zoom: float64 = 2.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "skipped") {
		t.Errorf("LogIf(false) should not log:\n%s", out)
	}
}

func TestLogEnterExit(t *testing.T) {
	buf := capture(t)
	SetEnabled(true)
	LogEnterExit("frame")()
	out := buf.String()
	if !strings.Contains(out, "-> frame") || !strings.Contains(out, "<- frame") {
		t.Errorf("missing enter/exit lines:\n%s", out)
	}
}
