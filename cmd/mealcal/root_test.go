package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = "../../internal/extract/testdata/plan.html"

// setup writes a config pointing all storage into a temp dir and returns its
// path plus the temp root.
func setup(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	cfg := "plans_dir: " + filepath.Join(root, "plans") + "\n" +
		"invites_dir: " + filepath.Join(root, "invites") + "\n" +
		"inbox_dir: " + filepath.Join(root, "inbox") + "\n" +
		"log_level: error\n"
	path := filepath.Join(root, "mealcal.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	for _, sub := range []string{"extract", "calendar", "plans", "inspect", "debug", "reset", "serve"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

func TestExtractCalendarInspect(t *testing.T) {
	cfg, root := setup(t)

	out, err := run(t, "--config", cfg, "extract", fixture, "--name", "week22", "--csv")
	if err != nil {
		t.Fatalf("extract: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Processing date: date_cards29-05-2025 (2 meals)",
		"Processing date: date_cards31-05-2025 (0 meals)",
		"Warning: date_cards30-05-2025:",
		"week22.json",
		"week22.csv",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("extract output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--config", cfg, "plans")
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if !strings.Contains(out, "week22.json\t2\t3") {
		t.Errorf("plans output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "calendar")
	if err != nil {
		t.Fatalf("calendar: %v\n%s", err, out)
	}
	icsPath := filepath.Join(root, "invites", "week22.ics")
	if !strings.Contains(out, icsPath) || !strings.Contains(out, "(3 events)") {
		t.Errorf("calendar output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "inspect", icsPath)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{
		"EVENTS: 3",
		"2025-05-29 08:00:00\t2025-05-29 08:30:00\t20250529T080000@senproscrape.meal\t8:00 AM Breakfast Oatmeal Berries",
		"2025-05-30 07:15:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestCalendarToStdout(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "--config", cfg, "extract", fixture, "--name", "week22"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", cfg, "calendar", "week22", "--stdout")
	if err != nil {
		t.Fatalf("calendar --stdout: %v", err)
	}
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n") || !strings.Contains(out, "DTSTART:20250529T123000\r\n") {
		t.Errorf("calendar output:\n%s", out)
	}
}

func TestCalendarWithoutPlans(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "--config", cfg, "calendar"); err == nil {
		t.Error("calendar with no plans succeeded")
	}
}

func TestExtractWithoutSections(t *testing.T) {
	cfg, root := setup(t)
	page := filepath.Join(root, "blank.html")
	if err := os.WriteFile(page, []byte(`<div class="card meal"><span class="title">x</span></div>`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "extract", page, "--debug")
	if err == nil {
		t.Fatal("extract succeeded on a page without date sections")
	}
	if !strings.Contains(out, "Available classes in the HTML: card meal title") {
		t.Errorf("output missing class inventory:\n%s", out)
	}
	if !strings.Contains(out, "<html>\n  <head>\n  <body>\n") {
		t.Errorf("output missing outline:\n%s", out)
	}
}

func TestDebugCommand(t *testing.T) {
	cfg, _ := setup(t)

	out, err := run(t, "--config", cfg, "debug", fixture, "--select", "a.mealplan", "--limit", "2")
	if err != nil {
		t.Fatalf("debug --select: %v", err)
	}
	if !strings.Contains(out, "Found 4 elements matching 'a.mealplan':") ||
		!strings.Contains(out, "... and 2 more elements") ||
		!strings.Contains(out, "TEXT: Berries") {
		t.Errorf("debug --select output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "debug", fixture, "--find", "lunch")
	if err != nil {
		t.Fatalf("debug --find: %v", err)
	}
	if !strings.Contains(out, "Found 1 elements containing 'lunch':\n1. span - Lunch") {
		t.Errorf("debug --find output:\n%s", out)
	}

	if _, err := run(t, "--config", cfg, "debug", fixture, "--select", "div > span"); err == nil {
		t.Error("debug accepted an unsupported selector")
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	cfg, root := setup(t)
	if _, err := run(t, "--config", cfg, "extract", fixture, "--name", "week22"); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfg, "reset"); err == nil {
		t.Fatal("reset without --yes succeeded")
	}
	if _, err := os.Stat(filepath.Join(root, "plans", "week22.json")); err != nil {
		t.Fatalf("plan removed without confirmation: %v", err)
	}

	if _, err := run(t, "--config", cfg, "reset", "--yes"); err != nil {
		t.Fatalf("reset --yes: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "plans", "week22.json")); !os.IsNotExist(err) {
		t.Errorf("plan still present after reset: %v", err)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "--config", cfg, "--log-level", "loud", "plans"); err == nil {
		t.Error("unknown log level accepted")
	}
}
