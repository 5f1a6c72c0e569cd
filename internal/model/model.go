package model

import "strings"

// RecipeLink is a recipe referenced from a meal, keyed by its visible name.
type RecipeLink struct {
	Name string
	URL  string
}

// Meal is one scheduled meal inside a date section.
//
// In the simple form Text already carries the whole canonical string
// "<time> <title> <detail...>" and RecipeLinks is empty. In the structured
// form Text is "<time> <title>" and the details live in RecipeLinks.
type Meal struct {
	Text        string
	RecipeLinks []RecipeLink

	// Structured records which interchange shape the meal uses so that a
	// save/load cycle reproduces the same value.
	Structured bool
}

// Canonical returns the single space-joined meal string used for calendar
// summaries: text followed by every recipe name in order.
func (m Meal) Canonical() string {
	if len(m.RecipeLinks) == 0 {
		return m.Text
	}
	parts := make([]string, 0, len(m.RecipeLinks)+1)
	if m.Text != "" {
		parts = append(parts, m.Text)
	}
	for _, l := range m.RecipeLinks {
		parts = append(parts, l.Name)
	}
	return strings.Join(parts, " ")
}

// SetRecipe adds or replaces a recipe link. A repeated name keeps its first
// position and takes the newest URL.
func (m *Meal) SetRecipe(name, url string) {
	for i := range m.RecipeLinks {
		if m.RecipeLinks[i].Name == name {
			m.RecipeLinks[i].URL = url
			return
		}
	}
	m.RecipeLinks = append(m.RecipeLinks, RecipeLink{Name: name, URL: url})
}

// Day holds the meals of one date section. ID is the raw section identifier
// (e.g. "date_cards29-05-2025"), not a normalized date.
type Day struct {
	ID    string
	Meals []Meal
}

// MealPlan maps date-section identifiers to their meals, preserving the order
// in which sections were first seen.
type MealPlan struct {
	Days []Day
}

// Set stores meals for id. An existing id keeps its position and has its
// meals replaced.
func (p *MealPlan) Set(id string, meals []Meal) {
	for i := range p.Days {
		if p.Days[i].ID == id {
			p.Days[i].Meals = meals
			return
		}
	}
	p.Days = append(p.Days, Day{ID: id, Meals: meals})
}

// Get returns the meals stored for id.
func (p *MealPlan) Get(id string) ([]Meal, bool) {
	for _, d := range p.Days {
		if d.ID == id {
			return d.Meals, true
		}
	}
	return nil, false
}

// Len is the number of date sections in the plan.
func (p *MealPlan) Len() int { return len(p.Days) }

// MealCount is the total number of meals across all sections.
func (p *MealPlan) MealCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Meals)
	}
	return n
}
