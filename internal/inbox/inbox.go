// Package inbox turns HTML snapshots dropped into a directory into saved meal
// plans and calendars on a cron schedule.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"mealcal/internal/extract"
	"mealcal/internal/ics"
	appLog "mealcal/internal/log"
	"mealcal/internal/store"
)

// RejectedDir is the subdirectory of the inbox that receives snapshots with
// no date sections.
const RejectedDir = "failed"

// Outcome records what a sweep did with one snapshot. Rejected is the new
// path of a snapshot moved to RejectedDir.
type Outcome struct {
	Source   string
	Plan     string
	Calendar string
	Rejected string
	Events   int
	Err      error
}

// Sweeper processes snapshots in Dir. A snapshot "week22.html" is handled
// once: after its plan "week22.json" exists it is skipped. A snapshot without
// date sections is moved to RejectedDir instead.
type Sweeper struct {
	Dir       string
	Extractor *extract.Extractor
	Emitter   *ics.Emitter
	Store     *store.Store

	mu   sync.Mutex
	cron *cron.Cron
}

// Pending lists snapshot files in Dir that have no plan yet, sorted.
func (s *Sweeper) Pending() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	have, err := s.Store.List()
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, e := range entries {
		if e.IsDir() || !isSnapshot(e.Name()) {
			continue
		}
		if containsString(have, planNameFor(e.Name())) {
			continue
		}
		pending = append(pending, e.Name())
	}
	sort.Strings(pending)
	return pending, nil
}

// SweepOnce processes every pending snapshot. A failing snapshot is logged
// and reported in its Outcome; it does not stop the sweep. Snapshots without
// date sections are moved aside, other failures are retried on the next
// sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.Pending()
	if err != nil {
		return nil, fmt.Errorf("list inbox %s: %w", s.Dir, err)
	}

	outcomes := make([]Outcome, 0, len(pending))
	for _, name := range pending {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := s.process(name)
		switch {
		case errors.Is(out.Err, extract.ErrNoDateSections):
			rejected, err := s.reject(name)
			if err != nil {
				appLog.Error("failed to move rejected snapshot", err, "file", name)
				break
			}
			out.Rejected = rejected
			appLog.Warn("inbox snapshot rejected", "file", name, "moved_to", rejected, "err", out.Err.Error())
		case out.Err != nil:
			appLog.Error("inbox snapshot failed", out.Err, "file", name)
		}
		outcomes = append(outcomes, out)
	}
	if len(pending) > 0 {
		appLog.Info("inbox sweep completed", "dir", s.Dir, "processed", len(outcomes))
	}
	return outcomes, nil
}

func (s *Sweeper) process(name string) Outcome {
	out := Outcome{Source: name}

	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		out.Err = err
		return out
	}
	defer f.Close()

	res, err := s.Extractor.ExtractHTML(f)
	if err != nil {
		out.Err = err
		return out
	}
	for _, w := range res.Warnings {
		appLog.Warn("inbox extraction warning", "file", name, "section", w.SectionID, "kind", string(w.Kind), "msg", w.Message)
	}

	planName := planNameFor(name)
	if out.Plan, err = s.Store.Save(planName, res.Plan); err != nil {
		out.Err = err
		return out
	}

	data, doc, err := s.Emitter.Emit(res.Plan)
	if err != nil {
		out.Err = err
		return out
	}
	out.Events = len(doc.Events)
	if out.Calendar, err = s.Store.SaveCalendar(planName, data); err != nil {
		out.Err = err
	}
	return out
}

// reject moves a snapshot into RejectedDir and returns its new path.
func (s *Sweeper) reject(name string) (string, error) {
	dir := filepath.Join(s.Dir, RejectedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(filepath.Join(s.Dir, name), dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Start schedules SweepOnce on schedule (standard 5-field cron syntax) until
// ctx is cancelled. An empty schedule disables the inbox.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		appLog.Info("inbox disabled", "dir", s.Dir)
		return nil
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return errors.New("inbox: already started")
	}
	c := cron.New()
	s.cron = c
	s.mu.Unlock()

	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLog.Error("inbox sweep failed", err, "dir", s.Dir)
		}
	}); err != nil {
		s.mu.Lock()
		s.cron = nil
		s.mu.Unlock()
		return fmt.Errorf("inbox: invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	appLog.Info("inbox scheduler started", "dir", s.Dir, "schedule", schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("inbox scheduler stopped", "dir", s.Dir)
}

func isSnapshot(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".html" || ext == ".htm") && !strings.HasPrefix(name, ".")
}

func planNameFor(snapshot string) string {
	return strings.TrimSuffix(snapshot, filepath.Ext(snapshot)) + ".json"
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
