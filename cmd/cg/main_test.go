package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
	"github.com/vanderheijden86/casegraph/pkg/version"
)

// isolate points config and data lookups at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_VersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.Contains(out, version.Version) {
		t.Errorf("--version: code %d, out %q", code, out)
	}

	code, out, _ = runCLI(t, "--help")
	if code != 0 || !strings.Contains(out, "Usage: cg") || !strings.Contains(out, "-export") {
		t.Errorf("--help: code %d, out %q", code, out)
	}

	if code, _, _ := runCLI(t, "--no-such-flag"); code != 2 {
		t.Errorf("unknown flag exit code = %d, want 2", code)
	}
}

func TestRun_NeedsGraph(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t)
	if code != 2 || !strings.Contains(errOut, "no graph file") {
		t.Errorf("code %d, stderr %q", code, errOut)
	}

	code, _, errOut = runCLI(t, "--graph", filepath.Join(t.TempDir(), "missing.json"))
	if code != 1 || !strings.Contains(errOut, "loading graph") {
		t.Errorf("missing file: code %d, stderr %q", code, errOut)
	}
}

func TestRun_ExportPNGAndJSON(t *testing.T) {
	dir := isolate(t)
	in := testutil.WriteGraphFile(t, dir, "case.json", testutil.QuickInvestigation(2, 3))
	pngPath := filepath.Join(dir, "out", "case.png")
	jsonPath := filepath.Join(dir, "out", "case.graph")

	code, _, errOut := runCLI(t,
		"--export", pngPath+", "+jsonPath,
		"--width", "200", "--height", "150",
		"--seed", "7", "--ticks", "50",
		in,
	)
	if code != 0 {
		t.Fatalf("export exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "wrote") {
		t.Errorf("no completion log: %q", errOut)
	}

	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("png size %v", b)
	}

	res, err := loader.LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("reload json: %v", err)
	}
	// One organization, two subjects, three contacts each.
	if len(res.Graph.Nodes) != 1+2+2*3 {
		t.Errorf("json has %d nodes", len(res.Graph.Nodes))
	}
	for _, n := range res.Graph.Nodes {
		if n.Position == nil {
			t.Errorf("node %s exported without a position", n.ID)
		}
	}
}

func TestRun_ExportErrors(t *testing.T) {
	dir := isolate(t)
	in := testutil.WriteGraphFile(t, dir, "case.json", testutil.QuickStar(3))

	if code, _, errOut := runCLI(t, "--export", filepath.Join(dir, "x.bmp"), in); code != 1 || !strings.Contains(errOut, "export failed") {
		t.Errorf("bad extension: code %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "--export", " , ", in); code != 2 {
		t.Errorf("empty export list: code %d", code)
	}
}

func TestRun_ConfigAndOverrides(t *testing.T) {
	dir := isolate(t)
	in := testutil.WriteGraphFile(t, dir, "case.json", testutil.QuickStar(3))

	if code, _, errOut := runCLI(t, "--theme", "neon", "--export", filepath.Join(dir, "a.png"), in); code != 1 || !strings.Contains(errOut, "config") {
		t.Errorf("invalid theme: code %d, stderr %q", code, errOut)
	}

	if code, _, _ := runCLI(t, "--config", filepath.Join(dir, "nope", "config.yaml"), "--export", filepath.Join(dir, "b.svg"), in); code != 0 {
		t.Errorf("missing explicit config should fall back to defaults, got %d", code)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("render: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "--config", broken, "--export", filepath.Join(dir, "c.svg"), in); code != 1 {
		t.Errorf("broken explicit config: code %d, want 1", code)
	}

	// A broken user config only warns.
	userCfg := filepath.Join(dir, "config", "casegraph", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(userCfg), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userCfg, []byte("render: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "--stable-bands", "--export", filepath.Join(dir, "d.svg"), in)
	if code != 0 || !strings.Contains(errOut, "ignoring user config") {
		t.Errorf("broken user config: code %d, stderr %q", code, errOut)
	}
}

func TestRun_RefusesNonTerminal(t *testing.T) {
	dir := isolate(t)
	in := testutil.WriteGraphFile(t, dir, "case.json", testutil.QuickStar(2))

	orig := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = orig })

	code, _, errOut := runCLI(t, in)
	if code != 1 || !strings.Contains(errOut, "not a terminal") {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestRun_ExportHooks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hooks run through sh")
	}
	dir := isolate(t)
	in := testutil.WriteGraphFile(t, dir, "case.json", testutil.QuickStar(3))
	out := filepath.Join(dir, "star.svg")

	hooksFile := filepath.Join(dir, "hooks.yaml")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(hooksFile, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("hooks:\n  pre-export:\n    - name: gate\n      command: exit 1\n")
	code, _, errOut := runCLI(t, "--hooks", hooksFile, "--export", out, in)
	if code != 1 || !strings.Contains(errOut, "cancelled by hook") {
		t.Errorf("failing pre-export hook: code %d, stderr %q", code, errOut)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("snapshot written despite a failing pre-export hook")
	}

	if code, _, _ := runCLI(t, "--hooks", hooksFile, "--no-hooks", "--export", out, in); code != 0 {
		t.Errorf("--no-hooks: code %d", code)
	}

	write("hooks:\n  post-export:\n    - name: report\n      command: echo \"$CG_EXPORT_FORMATS $CG_NODE_COUNT\"\n")
	code, _, errOut = runCLI(t, "--hooks", hooksFile, "--export", out, in)
	if code != 0 || !strings.Contains(errOut, "svg 4") {
		t.Errorf("post-export hook: code %d, stderr %q", code, errOut)
	}
}
