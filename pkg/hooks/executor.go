package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/casegraph/pkg/debug"
)

// Result is the outcome of one hook run.
type Result struct {
	Hook     string
	Phase    Phase
	Success  bool
	Err      error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs the hooks of one export.
type Executor struct {
	cfg     Config
	export  ExportContext
	results []Result
}

// NewExecutor prepares cfg's hooks for the export described by ec.
func NewExecutor(cfg Config, ec ExportContext) *Executor {
	return &Executor{cfg: cfg, export: ec}
}

// RunPreExport runs the pre-export hooks in order and stops at the first
// failing hook whose on_error is fail.
func (e *Executor) RunPreExport(ctx context.Context) error {
	return e.run(ctx, PreExport, true)
}

// RunPostExport runs every post-export hook. It returns an error if a hook
// with on_error fail failed, after the remaining hooks ran.
func (e *Executor) RunPostExport(ctx context.Context) error {
	return e.run(ctx, PostExport, false)
}

func (e *Executor) run(ctx context.Context, phase Phase, stopOnFail bool) error {
	var errs []error
	for _, h := range e.cfg.Get(phase) {
		r := e.runOne(ctx, phase, h)
		e.results = append(e.results, r)
		debug.Log("hooks: %s %q ok=%v in %s", phase, h.Name, r.Success, r.Duration)
		if r.Success || h.OnError == OnErrorContinue {
			continue
		}
		err := fmt.Errorf("%s hook %q: %w", phase, h.Name, r.Err)
		if stopOnFail {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Executor) runOne(ctx context.Context, phase Phase, h Hook) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = e.environ(h)
	// Bounds the wait for pipes held open by grandchildren after a kill.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h.Name,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", timeout)
		} else if r.Stderr != "" {
			err = fmt.Errorf("%w: %s", err, truncate(r.Stderr, 200))
		}
		r.Err = err
	}
	return r
}

// environ is the process environment plus the export context plus the
// hook's own variables, which may reference any of the former.
func (e *Executor) environ(h Hook) []string {
	env := append(os.Environ(), e.export.ToEnv()...)
	if len(h.Env) == 0 {
		return env
	}
	lookup := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			lookup[k] = v
		}
	}
	for k, v := range h.Env {
		env = append(env, k+"="+os.Expand(v, func(name string) string { return lookup[name] }))
	}
	return env
}

// Results returns every hook run so far, in order.
func (e *Executor) Results() []Result {
	return e.results
}

// Failed returns the results of hooks that did not succeed.
func (e *Executor) Failed() []Result {
	var out []Result
	for _, r := range e.results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Summary is a one-line account of the runs.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return "no hooks ran"
	}
	failed := len(e.Failed())
	return fmt.Sprintf("%d hook(s) ran, %d succeeded, %d failed", len(e.results), len(e.results)-failed, failed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
