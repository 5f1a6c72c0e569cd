package ics

import (
	"testing"
	"time"
)

func TestSectionDate(t *testing.T) {
	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"date_cards29-05-2025", "2025-05-29", true},
		{"date_cardsA-01-06-2025", "2025-06-01", true},
		{"01-01-2024-and-02-02-2024", "2024-01-01", true},
		{"date_cards29-02-2024", "2024-02-29", true},
		{"date_cards29-02-2025", "", false},
		{"date_cards31-13-2025", "", false},
		{"date_cardsXYZ", "", false},
		{"date_cards1-6-2025", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := SectionDate(tt.id, time.UTC)
			if ok != tt.wantOK {
				t.Fatalf("SectionDate(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("SectionDate(%q) = %s, want %s", tt.id, got.Format("2006-01-02"), tt.want)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
				t.Errorf("SectionDate(%q) = %v, want midnight", tt.id, got)
			}
		})
	}
}

func TestSectionDateRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		id := "date_cards" + d.Format("02-01-2006")
		got, ok := SectionDate(id, time.UTC)
		if !ok || !got.Equal(d) {
			t.Fatalf("SectionDate(%q) = %v, %v; want %v", id, got, ok, d)
		}
	}
}

func TestInferTime(t *testing.T) {
	tests := []struct {
		text   string
		want   Clock
		wantOK bool
	}{
		{"8:00 Breakfast Oatmeal", Clock{8, 0}, true},
		{"08:05 AM Breakfast", Clock{8, 5}, true},
		{"12:30 PM Lunch", Clock{12, 30}, true},
		{"23:59 Snack", Clock{23, 59}, true},
		{"7:155 Odd", Clock{7, 15}, true},
		{"Lunch Salad", Clock{}, false},
		{" 8:00 Leading space", Clock{}, false},
		{"Dinner at 19:00", Clock{}, false},
		{"123:45 Too many digits", Clock{}, false},
		{"24:00 Midnight", Clock{}, false},
		{"9:75 Bad minutes", Clock{}, false},
		{"", Clock{}, false},
	}
	for _, tt := range tests {
		got, ok := InferTime(tt.text)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("InferTime(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStartClockDefaultsToNoon(t *testing.T) {
	if got := StartClock("Lunch Salad"); got != (Clock{12, 0}) {
		t.Errorf("StartClock() = %v, want 12:00", got)
	}
	if got := StartClock("6:45 Porridge"); got.String() != "06:45" {
		t.Errorf("StartClock() = %v, want 06:45", got)
	}
}
