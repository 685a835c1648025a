package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/templates"
)

// setup points the CLI at an isolated data directory.
func setup(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WANDCAST_CONFIG", "")
	t.Setenv("WANDCAST_DATA_DIR", dataDir)
	configPath = ""
	return dataDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func saveTemplate(t *testing.T, dataDir, label string) templates.File {
	t.Helper()
	points := []gesture.PathPoint{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}, {X: 1, Y: 0}}
	f, err := templates.NewDir(filepath.Join(dataDir, "templates")).Save(label, points, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return f
}

func TestTemplatesCmd(t *testing.T) {
	dataDir := setup(t)
	saveTemplate(t, dataDir, "cast_protego")

	out, err := run(t, "templates")
	if err != nil {
		t.Fatalf("templates error = %v", err)
	}
	if !strings.Contains(out, "cast_protego") || !strings.Contains(out, "cast_protego_20240115_100000.xml") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExportCmd(t *testing.T) {
	dataDir := setup(t)
	f := saveTemplate(t, dataDir, "cast_stupefy")
	dest := filepath.Join(t.TempDir(), "out")

	out, err := run(t, "export", "--dest", dest)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "Exported 1 templates") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dest, f.Name)); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestClassifyCmd(t *testing.T) {
	dataDir := setup(t)
	f := saveTemplate(t, dataDir, "cast_protego")

	out, err := run(t, "classify", f.Path)
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(out, `"label": "cast_protego"`) || !strings.Contains(out, `"accepted": true`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestClassifyCmd_RequiresFile(t *testing.T) {
	setup(t)
	if _, err := run(t, "classify"); err == nil {
		t.Error("expected an error without a file argument")
	}
}
