package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeGraph(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newGraphFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case.json")
	writeGraph(t, path, `{"nodes":[{"id":"a"}]}`)
	return path
}

func startWatcher(t *testing.T, path string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Error("cancelled callback ran")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("duration = %v", d.Duration())
	}
}

func TestWatcher_ReportsContentChange(t *testing.T) {
	path := newGraphFile(t)
	var (
		mu  sync.Mutex
		got []string
	)
	startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func(p string) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		}),
	)
	time.Sleep(100 * time.Millisecond)
	writeGraph(t, path, `{"nodes":[{"id":"a"},{"id":"b"}]}`)
	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	want, _ := filepath.Abs(path)
	if len(got) == 0 || got[0] != want {
		t.Errorf("changes = %v, want %s", got, want)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := newGraphFile(t)
	var changed atomic.Bool
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func(string) { changed.Store(true) }),
	)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}
	time.Sleep(50 * time.Millisecond)
	writeGraph(t, path, `{"nodes":[{"id":"a"},{"id":"c"}]}`)
	time.Sleep(400 * time.Millisecond)
	if !changed.Load() {
		t.Error("change not detected while polling")
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	path := newGraphFile(t)
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
	)
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte(`{"nodes":[]}`), 0o644)
	}()
	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Error("timeout waiting for change")
	}
}

func TestWatcher_IdenticalRewriteSuppressed(t *testing.T) {
	path := newGraphFile(t)
	var calls atomic.Int32
	startWatcher(t, path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func(string) { calls.Add(1) }),
	)
	// Same bytes, new mtime.
	time.Sleep(60 * time.Millisecond)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("identical content reported %d times", n)
	}
}

func TestWatcher_EnvForcesPolling(t *testing.T) {
	for _, name := range []string{"CG_FORCE_POLLING", "CG_FORCE_POLL"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "1")
			w := startWatcher(t, newGraphFile(t), WithPollInterval(25*time.Millisecond))
			if !w.IsPolling() {
				t.Fatalf("%s=1 did not force polling", name)
			}
		})
	}
}

func TestWatcher_RemoteFilesystemPolls(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, newGraphFile(t), WithPollInterval(25*time.Millisecond))
	if !w.IsPolling() {
		t.Fatal("expected polling on nfs")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("filesystem = %v", got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := newGraphFile(t)
	var (
		mu  sync.Mutex
		got error
	)
	startWatcher(t, path,
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			mu.Lock()
			got = err
			mu.Unlock()
		}),
	)
	time.Sleep(30 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(got, ErrFileRemoved) {
		t.Errorf("error = %v, want ErrFileRemoved", got)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(newGraphFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("started before Start")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("still started after Stop")
	}
	w.Stop()
}

func TestWatcher_Accessors(t *testing.T) {
	path := newGraphFile(t)
	w, err := New(path, WithPollInterval(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("path = %s", w.Path())
	}
	if w.PollInterval() != 500*time.Millisecond {
		t.Errorf("poll interval = %v", w.PollInterval())
	}
	if w, _ := New(path, WithPollInterval(0)); w.PollInterval() != DefaultPollInterval {
		t.Errorf("zero interval = %v", w.PollInterval())
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fs   FilesystemType
		want string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.fs.String(); got != tt.want {
			t.Errorf("FilesystemType(%d) = %q, want %q", tt.fs, got, tt.want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "TRUE": true, "yes": true, "Y": true, " on ": true,
		"0": false, "false": false, "no": false, "": false, "invalid": false,
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CG_TEST_BOOL", value)
			if got := envBool("CG_TEST_BOOL"); got != want {
				t.Errorf("envBool(%q) = %v", value, got)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("empty path = %v", got)
	}
	dir := t.TempDir()
	missing := filepath.Join(dir, "later", "case.json")
	if got, want := DetectFilesystemType(missing), DetectFilesystemType(dir); got != want {
		t.Errorf("missing path classified %v, parent %v", got, want)
	}
}
