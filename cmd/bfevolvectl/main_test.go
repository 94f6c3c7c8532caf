package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

var runIDPattern = regexp.MustCompile(`run_id=(\S+)`)

func trivialRunArgs(extra ...string) []string {
	args := []string{
		"run",
		"--target", "\x01",
		"--genes", "+.",
		"--pop", "20",
		"--gene-rate", "5",
		"--init-len", "4",
		"--instr-limit", "1000",
		"--tape-size", "300",
		"--max-gens", "500",
		"--seed", "11",
		"--workers", "2",
		"--quiet",
	}
	return append(args, extra...)
}

func TestRunCommandThenInspect(t *testing.T) {
	workdir := chdirTemp(t)
	ctx := context.Background()

	out, err := captureStdout(func() error {
		return run(ctx, trivialRunArgs())
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "stop=solved") || !strings.Contains(out, `best_output="\x01"`) {
		t.Fatalf("unexpected run output: %s", out)
	}
	match := runIDPattern.FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("run output has no run id: %s", out)
	}
	runID := match[1]
	if _, err := os.Stat(filepath.Join(workdir, runsDir, runID, "best.bf")); err != nil {
		t.Fatalf("expected best program artifact: %v", err)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"runs"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "run_id="+runID) || !strings.Contains(out, "stop=solved") {
		t.Fatalf("unexpected runs output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"fitness", "--latest", "--limit", "0"})
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	if !strings.Contains(out, "generation=0 best_fitness=") || !strings.Contains(out, "best_fitness=0\n") {
		t.Fatalf("unexpected fitness output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"diagnostics", "--run-id", runID, "--limit", "1"})
	})
	if err != nil {
		t.Fatalf("diagnostics command: %v", err)
	}
	if strings.Count(out, "generation=") != 1 || !strings.Contains(out, "rng_state=") {
		t.Fatalf("unexpected diagnostics output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"top", "--latest", "--json"})
	})
	if err != nil {
		t.Fatalf("top command: %v", err)
	}
	if !strings.Contains(out, `"rank": 1`) {
		t.Fatalf("unexpected top output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"export", "--latest"})
	})
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workdir, exportsDir, runID, "config.json")); err != nil {
		t.Fatalf("expected exported config: %v (output %s)", err, out)
	}
}

func TestRunCommandWithConfigAndOverride(t *testing.T) {
	workdir := chdirTemp(t)
	cfgPath := filepath.Join(workdir, "run.yaml")
	body := "target: \"\\x01\"\ngenes: \"+.\"\npopulation: 20\ninitial_length: 4\ninstruction_limit: 1000\ntape_size: 300\nseed: 3\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--config", cfgPath, "--seed", "21", "--max-gens", "500", "--quiet"})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "seed=21") || !strings.Contains(out, "run_id=21-") {
		t.Fatalf("flag override not applied: %s", out)
	}
}

func TestRunCommandRejectsZeroInstructionLimit(t *testing.T) {
	chdirTemp(t)
	err := run(context.Background(), trivialRunArgs("--instr-limit", "0"))
	if err == nil || !strings.Contains(err.Error(), "instr-limit") {
		t.Fatalf("expected instruction limit error, got %v", err)
	}
}

func TestExecCommand(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"exec", "--program", "++++++++[>++++++++<-]>+."})
	})
	if err != nil {
		t.Fatalf("exec command: %v", err)
	}
	if !strings.Contains(out, `output="A"`) {
		t.Fatalf("unexpected exec output: %s", out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"exec", "--raw", "+++++++++++++++++++++++++++++++++."})
	})
	if err != nil {
		t.Fatalf("exec raw: %v", err)
	}
	if out != "!" {
		t.Fatalf("unexpected raw output: %q", out)
	}

	err = run(context.Background(), []string{"exec", "--instr-limit", "10", "--program", "+[]"})
	if err == nil || !strings.Contains(err.Error(), "error=InstrLimitExceeded") {
		t.Fatalf("expected instruction limit failure, got %v", err)
	}

	if err := run(context.Background(), []string{"exec"}); err == nil {
		t.Fatal("expected missing program error")
	}
}

func TestInspectCommandsRequireSelector(t *testing.T) {
	chdirTemp(t)
	for _, cmd := range []string{"fitness", "diagnostics", "top", "export"} {
		if err := run(context.Background(), []string{cmd}); err == nil {
			t.Fatalf("%s: expected selector error", cmd)
		}
		if err := run(context.Background(), []string{cmd, "--run-id", "x", "--latest"}); err == nil {
			t.Fatalf("%s: expected selector conflict", cmd)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected missing command error")
	}
	err := run(context.Background(), []string{"evolve"})
	if err == nil || !strings.Contains(err.Error(), "usage: bfevolvectl") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
