// Package extract reads a saved meal-planner page into a model.MealPlan.
//
// The page is a loose tree of nested boxes. Date sections are located by a
// structural Signature and identified by their id attribute, which embeds the
// date (e.g. "date_cards29-05-2025"). Inside each section the time labels and
// the meal containers are collected independently and paired by position.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	appLog "mealcal/internal/log"
	"mealcal/internal/model"
)

// UnknownMeal is the title used when a meal container has no title element.
const UnknownMeal = "Unknown Meal"

var (
	// ErrNoDateSections means the document parsed but carries no recognizable
	// schedule data. Callers may inspect ClassInventory to see what it does carry.
	ErrNoDateSections = errors.New("extract: no date sections found")

	// ErrSectionNotFound means a section id could not be located in the document.
	ErrSectionNotFound = errors.New("extract: date section not found")
)

// WarningKind classifies a recovered condition.
type WarningKind string

const (
	// WarnCountMismatch: time labels and meal containers differ in number and
	// the surplus on the longer side was dropped.
	WarnCountMismatch WarningKind = "count_mismatch"
	// WarnMissingTitle: a meal container had no title element.
	WarnMissingTitle WarningKind = "missing_title"
	// WarnMissingID: a date section matched but carries no id attribute.
	WarnMissingID WarningKind = "missing_id"
)

// Warning describes something the extractor recovered from.
type Warning struct {
	SectionID  string      `json:"section_id,omitempty"`
	Kind       WarningKind `json:"kind"`
	Message    string      `json:"message"`
	Labels     int         `json:"labels,omitempty"`
	Containers int         `json:"containers,omitempty"`
}

// Result is the outcome of Extract.
type Result struct {
	// Plan holds every section that produced at least one meal.
	Plan model.MealPlan
	// Sections lists all located section ids in document order.
	Sections []string
	// EmptySections lists located sections with zero meals. They are valid
	// and left out of Plan.
	EmptySections []string
	Warnings      []Warning
}

// Extractor turns parsed pages into meal plans. It holds no per-call state and
// may be shared between goroutines.
type Extractor struct {
	sigs       Signatures
	structured bool
}

// New builds an Extractor. Unset signatures take DefaultSignatures values.
// With structured set, meals keep recipe links as a name → URL mapping
// instead of folding them into the meal text.
func New(sigs Signatures, structured bool) *Extractor {
	sigs.Normalize()
	return &Extractor{sigs: sigs, structured: structured}
}

// Signatures returns the markers in use.
func (e *Extractor) Signatures() Signatures { return e.sigs }

// Parse reads an HTML document. The HTML5 parser recovers from almost any
// input, so errors here mean the reader itself failed.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// ExtractHTML parses r and runs Extract.
func (e *Extractor) ExtractHTML(r io.Reader) (*Result, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return e.Extract(doc)
}

// Extract locates every date section and extracts its meals.
// It returns ErrNoDateSections when the page has no sections at all; a page
// whose sections are all empty returns a Result with an empty Plan.
func (e *Extractor) Extract(doc *html.Node) (*Result, error) {
	ids, warns := e.dateSections(doc)
	res := &Result{Warnings: warns}
	if len(ids) == 0 {
		return res, ErrNoDateSections
	}

	for _, id := range ids {
		if containsString(res.Sections, id) {
			continue
		}
		res.Sections = append(res.Sections, id)

		meals, w, err := e.Meals(doc, id)
		if err != nil {
			// ids come from this very document, so this only happens if the
			// section tag and the lookup disagree; treat it as empty.
			appLog.Warn("date section vanished during extraction", "id", id, "err", err)
			res.EmptySections = append(res.EmptySections, id)
			continue
		}
		res.Warnings = append(res.Warnings, w...)

		if len(meals) == 0 {
			res.EmptySections = append(res.EmptySections, id)
			continue
		}
		res.Plan.Set(id, meals)
	}

	appLog.Info("extraction completed",
		"sections", len(res.Sections),
		"empty_sections", len(res.EmptySections),
		"meals", res.Plan.MealCount(),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// DateSections returns the ids of all date sections in document order, or
// ErrNoDateSections if there are none.
func (e *Extractor) DateSections(doc *html.Node) ([]string, error) {
	ids, _ := e.dateSections(doc)
	if len(ids) == 0 {
		return nil, ErrNoDateSections
	}
	return ids, nil
}

func (e *Extractor) dateSections(doc *html.Node) ([]string, []Warning) {
	var ids []string
	var warns []Warning
	for _, n := range findAll(doc, e.sigs.DateSection) {
		if !hasAttr(n, "id") {
			warns = append(warns, Warning{
				Kind:    WarnMissingID,
				Message: "date section without id attribute skipped",
			})
			appLog.Warn("date section without id skipped", "signature", e.sigs.DateSection.String())
			continue
		}
		ids = append(ids, getAttr(n, "id"))
	}
	return ids, warns
}

// Meals extracts the meals of the section with the given id.
//
// Time labels and meal containers are paired by position. When their counts
// differ the surplus is dropped and a WarnCountMismatch warning is returned.
func (e *Extractor) Meals(doc *html.Node, id string) ([]model.Meal, []Warning, error) {
	section := findByID(doc, e.sigs.DateSection.Tag, id)
	if section == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrSectionNotFound, id)
	}

	labelNodes := findAll(section, e.sigs.TimeLabel)
	labels := make([]string, 0, len(labelNodes))
	for _, n := range labelNodes {
		labels = append(labels, strings.TrimSpace(textContent(n)))
	}
	containers := findAll(section, e.sigs.MealContainer)

	var warns []Warning
	if len(labels) != len(containers) {
		warns = append(warns, Warning{
			SectionID:  id,
			Kind:       WarnCountMismatch,
			Message:    "time labels and meal containers differ in number; surplus dropped",
			Labels:     len(labels),
			Containers: len(containers),
		})
		appLog.Warn("time label / meal container count mismatch",
			"id", id, "labels", len(labels), "containers", len(containers))
	}

	n := min(len(labels), len(containers))
	meals := make([]model.Meal, 0, n)
	for i := 0; i < n; i++ {
		meal, titled := e.meal(labels[i], containers[i])
		if !titled {
			warns = append(warns, Warning{
				SectionID: id,
				Kind:      WarnMissingTitle,
				Message:   fmt.Sprintf("meal %d has no title; using %q", i+1, UnknownMeal),
			})
		}
		meals = append(meals, meal)
	}
	return meals, warns, nil
}

// meal builds one meal from its time label and container. The second return
// value is false when the title placeholder was used.
func (e *Extractor) meal(label string, container *html.Node) (model.Meal, bool) {
	title := UnknownMeal
	titled := false
	if t := findFirst(container, e.sigs.MealTitle); t != nil {
		title = strings.TrimSpace(textContent(t))
		titled = true
	}

	links := findAll(container, e.sigs.RecipeLink)

	if !e.structured {
		parts := make([]string, 0, len(links)+2)
		parts = append(parts, label, title)
		for _, a := range links {
			parts = append(parts, strings.TrimSpace(textContent(a)))
		}
		return model.Meal{Text: strings.Join(parts, " ")}, titled
	}

	m := model.Meal{Text: label + " " + title, Structured: true}
	for _, a := range links {
		m.SetRecipe(strings.TrimSpace(textContent(a)), strings.TrimSpace(getAttr(a, "href")))
	}
	return m, titled
}
