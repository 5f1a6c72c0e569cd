// Package store keeps meal plans and generated calendars on disk.
//
// Plans live in one directory as JSON interchange files, calendars in another
// as .ics files named after their plan. Writes are atomic (temp file +
// rename); concurrent writers of the same name resolve as last write wins.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	appLog "mealcal/internal/log"
	"mealcal/internal/model"
)

var (
	// ErrPlanNotFound is returned by Load for an unknown plan name.
	ErrPlanNotFound = errors.New("store: meal plan not found")
	// ErrInvalidName is returned for names that reduce to nothing usable.
	ErrInvalidName = errors.New("store: invalid file name")
)

const (
	planExt     = ".json"
	csvExt      = ".csv"
	calendarExt = ".ics"
)

// Store is rooted at a plans directory and an invites directory.
type Store struct {
	plansDir   string
	invitesDir string
}

// New returns a Store. Directories are created lazily on first write.
func New(plansDir, invitesDir string) *Store {
	return &Store{plansDir: plansDir, invitesDir: invitesDir}
}

// PlansDir returns the directory holding plan files.
func (s *Store) PlansDir() string { return s.plansDir }

// InvitesDir returns the directory holding calendar files.
func (s *Store) InvitesDir() string { return s.invitesDir }

// DefaultPlanName returns a timestamped plan file name.
func DefaultPlanName(now time.Time) string {
	return "meal_plan_" + now.Format("20060102_150405") + planExt
}

// PlanName reduces name to a base file name ending in .json. Directory parts
// are dropped so callers can never write outside the plans directory.
func PlanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.TrimSuffix(base, planExt) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.HasSuffix(base, planExt) {
		base += planExt
	}
	return base, nil
}

// CalendarName is the .ics file name for a plan: its base name with the
// extension replaced.
func CalendarName(planName string) string {
	base := filepath.Base(planName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + calendarExt
}

// List returns the plan file names in the plans directory, sorted. A missing
// directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.plansDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), planExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a plan by name.
func (s *Store) Load(name string) (model.MealPlan, error) {
	base, err := PlanName(name)
	if err != nil {
		return model.MealPlan{}, err
	}
	return LoadFile(filepath.Join(s.plansDir, base))
}

// LoadFile reads a plan from an arbitrary path.
func LoadFile(path string) (model.MealPlan, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.MealPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, path)
		}
		return model.MealPlan{}, err
	}
	defer f.Close()

	plan, err := model.Decode(f)
	if err != nil {
		return model.MealPlan{}, fmt.Errorf("decode meal plan %s: %w", path, err)
	}
	return plan, nil
}

// Save writes plan under name and returns the written path.
func (s *Store) Save(name string, plan model.MealPlan) (string, error) {
	base, err := PlanName(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := model.Encode(&buf, plan); err != nil {
		return "", fmt.Errorf("encode meal plan: %w", err)
	}

	path := filepath.Join(s.plansDir, base)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	appLog.Info("meal plan saved", "path", path, "sections", plan.Len(), "meals", plan.MealCount())
	return path, nil
}

// SaveCSV writes a "Date,Meal Details" summary with one row per section,
// meals joined by "; ". The name's extension is replaced by .csv.
func (s *Store) SaveCSV(name string, plan model.MealPlan) (string, error) {
	base, err := PlanName(name)
	if err != nil {
		return "", err
	}
	base = strings.TrimSuffix(base, planExt) + csvExt

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Meal Details"}); err != nil {
		return "", err
	}
	for _, d := range plan.Days {
		texts := make([]string, 0, len(d.Meals))
		for _, m := range d.Meals {
			texts = append(texts, m.Canonical())
		}
		if err := w.Write([]string{d.ID, strings.Join(texts, "; ")}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write meal plan csv: %w", err)
	}

	path := filepath.Join(s.plansDir, base)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	appLog.Info("meal plan csv saved", "path", path)
	return path, nil
}

// SaveCalendar writes calendar bytes for the plan named planName and returns
// the written path.
func (s *Store) SaveCalendar(planName string, data []byte) (string, error) {
	name := CalendarName(planName)
	if name == calendarExt {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, planName)
	}
	path := filepath.Join(s.invitesDir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	appLog.Info("calendar saved", "path", path, "bytes", len(data))
	return path, nil
}

// Reset removes and recreates both directories. It destroys every stored
// plan and calendar and is only ever run on explicit request.
func (s *Store) Reset() error {
	for _, dir := range []string{s.plansDir, s.invitesDir} {
		if dir == "" || dir == "." || dir == string(filepath.Separator) {
			return fmt.Errorf("store: refusing to reset %q", dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("reset %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("reset %s: %w", dir, err)
		}
		appLog.Info("storage directory reset", "dir", dir)
	}
	return nil
}

// writeFileAtomic writes data via a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mealcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
