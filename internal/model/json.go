package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Interchange format:
//
//	{
//	    "date_cards29-05-2025": [
//	        "8:00 AM Breakfast Oatmeal",
//	        {"text": "12:30 PM Lunch", "recipe_links": {"Salad": "https://..."}}
//	    ]
//	}
//
// Object key order is significant and preserved in both directions.

// Indent is the indentation used for plan files.
const Indent = "    "

// Encode writes p as indented JSON followed by a newline.
func Encode(w io.Writer, p MealPlan) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	return enc.Encode(p)
}

// Decode reads a plan written by Encode or by any tool producing the
// interchange format.
func Decode(r io.Reader) (MealPlan, error) {
	var p MealPlan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return MealPlan{}, err
	}
	return p, nil
}

// MarshalJSON writes the plan as an ordered object keyed by section id.
func (p MealPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range p.Days {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(d.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		buf.WriteByte('[')
		for j, m := range d.Meals {
			if j > 0 {
				buf.WriteByte(',')
			}
			b, err := m.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("marshal meal %d of %q: %w", j, d.ID, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered object keyed by section id. A repeated key
// replaces the earlier meals in place.
func (p *MealPlan) UnmarshalJSON(data []byte) error {
	p.Days = nil
	if isNull(data) {
		return nil
	}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var meals []Meal
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &meals); err != nil {
				return fmt.Errorf("section %q: %w", key, err)
			}
		}
		if len(meals) == 0 {
			meals = nil
		}
		p.Set(key, meals)
		return nil
	})
}

// MarshalJSON writes a plain string for simple meals and a
// {"text", "recipe_links"} record for structured ones.
func (m Meal) MarshalJSON() ([]byte, error) {
	if !m.Structured {
		return marshalString(m.Canonical())
	}

	var buf bytes.Buffer
	text, err := marshalString(m.Text)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"text":`)
	buf.Write(text)
	buf.WriteString(`,"recipe_links":{`)
	for i, l := range m.RecipeLinks {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalString(l.Name)
		if err != nil {
			return nil, err
		}
		v, err := marshalString(l.URL)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts both value shapes.
func (m *Meal) UnmarshalJSON(data []byte) error {
	*m = Meal{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty meal value")
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &m.Text)
	case '{':
		m.Structured = true
		return decodeObject(data, func(key string, raw json.RawMessage) error {
			switch key {
			case "text":
				if isNull(raw) {
					return nil
				}
				return json.Unmarshal(raw, &m.Text)
			case "recipe_links":
				if isNull(raw) {
					return nil
				}
				return decodeObject(raw, func(name string, v json.RawMessage) error {
					var url string
					if !isNull(v) {
						if err := json.Unmarshal(v, &url); err != nil {
							return fmt.Errorf("recipe %q: %w", name, err)
						}
					}
					m.SetRecipe(name, url)
					return nil
				})
			default:
				// Unknown fields are tolerated.
				return nil
			}
		})
	default:
		return fmt.Errorf("meal must be a string or an object, got %.20s", data)
	}
}

// decodeObject walks a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// marshalString encodes s without HTML escaping so recipe URLs keep their '&'.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
