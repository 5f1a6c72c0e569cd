package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"mealcal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "meal_plans"), filepath.Join(root, "cal_invites"))
}

func testPlan() model.MealPlan {
	var p model.MealPlan
	p.Set("date_cards29-05-2025", []model.Meal{
		{Text: "8:00 AM Breakfast Oatmeal"},
		{Text: "12:30 PM Lunch", Structured: true, RecipeLinks: []model.RecipeLink{{Name: "Salad", URL: "https://x/s"}}},
	})
	p.Set("date_cards28-05-2025", []model.Meal{{Text: "Dinner Soup"}})
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	plan := testPlan()

	path, err := s.Save("week22", plan)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "week22.json" {
		t.Errorf("path = %s", path)
	}

	got, err := s.Load("week22.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, plan) {
		t.Errorf("Load() = %+v, want %+v", got, plan)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "{\n    \"date_cards29-05-2025\": [\n        \"8:00 AM Breakfast Oatmeal\",") {
		t.Errorf("unexpected file layout:\n%s", raw)
	}
}

func TestSaveLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save("plan", testPlan()); err != nil {
		t.Fatal(err)
	}
	var second model.MealPlan
	second.Set("date_cards01-06-2025", []model.Meal{{Text: "Brunch"}})
	if _, err := s.Save("plan.json", second); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load("plan")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("Load() = %+v, want second write", got)
	}
}

func TestSaveStripsDirectories(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Save("../../escape", testPlan())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != s.PlansDir() {
		t.Errorf("plan written to %s, want inside %s", path, s.PlansDir())
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	names, err := s.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", names, err)
	}

	for _, n := range []string{"b", "a", "c"} {
		if _, err := s.Save(n, testPlan()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SaveCSV("a", testPlan()); err != nil {
		t.Fatal(err)
	}

	names, err = s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"a.json", "b.json", "c.json"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestLoadErrors(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load("missing"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Load(missing) err = %v, want ErrPlanNotFound", err)
	}
	for _, bad := range []string{"", "/", ".json"} {
		if _, err := s.Load(bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Load(%q) err = %v, want ErrInvalidName", bad, err)
		}
	}

	if err := os.MkdirAll(s.PlansDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.PlansDir(), "broken.json"), []byte(`{"a": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("broken"); err == nil || errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Load(broken) err = %v, want decode error", err)
	}
}

func TestSaveCSV(t *testing.T) {
	s := newTestStore(t)
	path, err := s.SaveCSV("week22.json", testPlan())
	if err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	if filepath.Base(path) != "week22.csv" {
		t.Errorf("path = %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Date,Meal Details\n" +
		"date_cards29-05-2025,8:00 AM Breakfast Oatmeal; 12:30 PM Lunch Salad\n" +
		"date_cards28-05-2025,Dinner Soup\n"
	if string(raw) != want {
		t.Errorf("csv =\n%s\nwant\n%s", raw, want)
	}
}

func TestSaveCalendar(t *testing.T) {
	s := newTestStore(t)
	path, err := s.SaveCalendar("meal_plans/week22.json", []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	if err != nil {
		t.Fatalf("SaveCalendar: %v", err)
	}
	if path != filepath.Join(s.InvitesDir(), "week22.ics") {
		t.Errorf("path = %s", path)
	}
	if CalendarName("plan.v2.json") != "plan.v2.ics" {
		t.Errorf("CalendarName(plan.v2.json) = %s", CalendarName("plan.v2.json"))
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save("plan", testPlan()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveCalendar("plan", []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, dir := range []string{s.PlansDir(), s.InvitesDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir(%s): %v", dir, err)
		}
		if len(entries) != 0 {
			t.Errorf("%s not empty after reset: %v", dir, entries)
		}
	}

	if err := New(".", "x").Reset(); err == nil {
		t.Error("Reset of \".\" succeeded")
	}
}

func TestDefaultPlanName(t *testing.T) {
	got := DefaultPlanName(time.Date(2025, 5, 29, 7, 8, 9, 0, time.UTC))
	if got != "meal_plan_20250529_070809.json" {
		t.Errorf("DefaultPlanName() = %s", got)
	}
}
