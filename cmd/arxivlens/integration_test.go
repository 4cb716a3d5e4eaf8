package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/csheth/arxivlens/internal/tuitest"
)

func TestBrowseFeedFile(t *testing.T) {
	t.Parallel()

	cmdDir := moduleDir(t)
	fixture := filepath.Join(cmdDir, "testdata", "feed.xml")
	if _, err := os.Stat(fixture); err != nil {
		t.Fatalf("fixture missing: %v", err)
	}

	binary := buildBinary(t, cmdDir)
	home := t.TempDir()
	steps := []tuitest.Step{
		tuitest.After("2/2 papers", tuitest.KeyDown),
		tuitest.After("#2", tuitest.KeyEnter),
		tuitest.After("This is a sample summary for the second entry.", []byte("c")),
		{WaitFor: "Configuration", Delay: 100 * time.Millisecond, Input: tuitest.KeyQuit},
	}

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--feed-file", fixture},
		Dir:     cmdDir,
		Env: []string{
			"XDG_CONFIG_HOME=" + home,
			"ARXIVLENS_CACHE_DIR=" + filepath.Join(home, "cache"),
			"ARXIVLENS_HIGHLIGHT_AUTHORS=Author Three",
		},
		Width:          100,
		Height:         30,
		Steps:          steps,
		Timeout:        10 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	if _, ok := rec.FrameContaining("Sample Title 1: Quantum Error Correction", "Sample Title 2", "2/2 papers"); !ok {
		t.Fatalf("no frame listed both fixture papers; last frame:\n%s", lastPlain(rec))
	}
	if _, ok := rec.FrameContaining("This is a sample summary for the second entry.", "Author Three"); !ok {
		t.Fatalf("detail pane never showed the second paper; last frame:\n%s", lastPlain(rec))
	}
	if _, ok := rec.FrameContaining("Configuration", "Pinned authors:", "Author Three"); !ok {
		t.Fatalf("config popup never rendered; last frame:\n%s", lastPlain(rec))
	}
}

func TestVersionCommand(t *testing.T) {
	binary := buildBinary(t, moduleDir(t))
	out, err := exec.Command(binary, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version: %v\n%s", err, out)
	}
	if string(out) != "arxivlens dev\n" {
		t.Fatalf("version output = %q", out)
	}
}

func TestInvalidCategoryFails(t *testing.T) {
	binary := buildBinary(t, moduleDir(t))
	cmd := exec.Command(binary, "--category", "not a category")
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure, got output %q", out)
	}
}

func lastPlain(rec *tuitest.Recording) string {
	frame, ok := rec.FinalFrame()
	if !ok {
		return "<no frames>"
	}
	return frame.Plain
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "arxivlens-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
