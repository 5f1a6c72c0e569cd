package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mealcal/internal/extract"
	"mealcal/internal/ics"
	"mealcal/internal/store"
)

const snapshot = `<html><body>
<div class="date_cards d-flex flex-column" id="date_cards02-06-2025">
  <div class="date_card_date font-small">7:45 AM</div>
  <div class="outline-box date_card_cont"><span>Breakfast</span><a class="mealplan">Porridge</a></div>
</div>
</body></html>`

func newSweeper(t *testing.T) *Sweeper {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "inbox")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return &Sweeper{
		Dir:       dir,
		Extractor: extract.New(extract.Signatures{}, false),
		Emitter: &ics.Emitter{
			Now: func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) },
		},
		Store: store.New(filepath.Join(root, "plans"), filepath.Join(root, "invites")),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSweepOnceProcessesNewSnapshots(t *testing.T) {
	s := newSweeper(t)
	writeFile(t, filepath.Join(s.Dir, "week23.html"), snapshot)
	writeFile(t, filepath.Join(s.Dir, "notes.txt"), "ignored")

	out, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("outcomes = %+v, want 1", out)
	}
	if out[0].Err != nil || out[0].Events != 1 {
		t.Fatalf("outcome = %+v", out[0])
	}

	plan, err := s.Store.Load("week23")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	meals, ok := plan.Get("date_cards02-06-2025")
	if !ok || len(meals) != 1 || meals[0].Text != "7:45 AM Breakfast Porridge" {
		t.Errorf("plan = %+v", plan)
	}

	cal, err := os.ReadFile(filepath.Join(s.Store.InvitesDir(), "week23.ics"))
	if err != nil {
		t.Fatalf("calendar not written: %v", err)
	}
	if !strings.Contains(string(cal), "DTSTART:20250602T074500\r\n") {
		t.Errorf("calendar missing start time:\n%s", cal)
	}

	again, err := s.SweepOnce(context.Background())
	if err != nil || len(again) != 0 {
		t.Errorf("second sweep = %+v, %v; want nothing pending", again, err)
	}
}

func TestSweepOnceRejectsPagesWithoutSections(t *testing.T) {
	s := newSweeper(t)
	writeFile(t, filepath.Join(s.Dir, "broken.html"), "<html><body><p>nothing here</p></body></html>")
	writeFile(t, filepath.Join(s.Dir, "week23.html"), snapshot)

	out, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if len(out) != 2 || !errors.Is(out[0].Err, extract.ErrNoDateSections) {
		t.Fatalf("outcomes = %+v, want ErrNoDateSections first", out)
	}
	moved := filepath.Join(s.Dir, RejectedDir, "broken.html")
	if out[0].Rejected != moved {
		t.Errorf("Rejected = %q, want %q", out[0].Rejected, moved)
	}
	if out[1].Err != nil || out[1].Events != 1 {
		t.Errorf("good snapshot outcome = %+v", out[1])
	}

	if _, err := os.Stat(moved); err != nil {
		t.Errorf("rejected snapshot not moved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "broken.html")); !os.IsNotExist(err) {
		t.Errorf("rejected snapshot still in inbox: %v", err)
	}

	pending, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending() = %v, want rejected snapshot gone", pending)
	}
	again, err := s.SweepOnce(context.Background())
	if err != nil || len(again) != 0 {
		t.Errorf("second sweep = %+v, %v; want nothing pending", again, err)
	}
}

func TestSweepOnceRetriesUnreadableSnapshots(t *testing.T) {
	s := newSweeper(t)
	if err := os.Symlink(filepath.Join(s.Dir, "missing"), filepath.Join(s.Dir, "gone.html")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	out, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if len(out) != 1 || out[0].Err == nil || out[0].Rejected != "" {
		t.Fatalf("outcomes = %+v, want an unrejected failure", out)
	}

	pending, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0] != "gone.html" {
		t.Errorf("Pending() = %v, want failed snapshot kept for retry", pending)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, RejectedDir)); !os.IsNotExist(err) {
		t.Errorf("rejected dir created for a retryable failure: %v", err)
	}
}

func TestPendingMissingDir(t *testing.T) {
	s := newSweeper(t)
	s.Dir = filepath.Join(s.Dir, "absent")
	pending, err := s.Pending()
	if err != nil || len(pending) != 0 {
		t.Errorf("Pending() = %v, %v", pending, err)
	}
}

func TestSweepOnceStopsOnCancel(t *testing.T) {
	s := newSweeper(t)
	writeFile(t, filepath.Join(s.Dir, "a.html"), snapshot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.SweepOnce(ctx)
	if !errors.Is(err, context.Canceled) || len(out) != 0 {
		t.Errorf("SweepOnce(cancelled) = %+v, %v", out, err)
	}
}

func TestStartSchedule(t *testing.T) {
	s := newSweeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, ""); err != nil {
		t.Errorf("Start(empty) = %v, want disabled without error", err)
	}
	if err := s.Start(ctx, "not a schedule"); err == nil {
		t.Error("Start(invalid) succeeded")
	}
	if err := s.Start(ctx, "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx, "@every 1h"); err == nil {
		t.Error("second Start succeeded")
	}
	s.Stop()
	s.Stop()
}
