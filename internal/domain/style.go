package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Style is one design aesthetic from the fixed catalogue.
type Style string

const (
	StyleModern       Style = "Modern"
	StyleScandinavian Style = "Scandinavian"
	StyleIndustrial   Style = "Industrial"
	StyleBohemian     Style = "Bohemian"
	StyleFarmhouse    Style = "Farmhouse"
	StyleMinimalist   Style = "Minimalist"
)

var catalogue = []Style{
	StyleModern,
	StyleScandinavian,
	StyleIndustrial,
	StyleBohemian,
	StyleFarmhouse,
	StyleMinimalist,
}

// Catalogue returns the styles in display order. The slice is a copy.
func Catalogue() []Style {
	out := make([]Style, len(catalogue))
	copy(out, catalogue)
	return out
}

// Valid reports whether s is a catalogue entry.
func (s Style) Valid() bool {
	for _, c := range catalogue {
		if c == s {
			return true
		}
	}
	return false
}

func (s Style) String() string {
	return string(s)
}

// ParseStyle canonicalises free-form input ("  modern ", "MODERN") into a
// catalogue entry.
func ParseStyle(raw string) (Style, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", Classify(ErrInvalidInput, "style is required", nil)
	}
	candidate := Style(cases.Title(language.Und).String(strings.ToLower(trimmed)))
	if !candidate.Valid() {
		return "", Classify(ErrInvalidInput, fmt.Sprintf("unknown style %q", raw), nil)
	}
	return candidate, nil
}

// ParseStyles parses and de-duplicates a list of style names, keeping the
// first occurrence order. An empty list selects the whole catalogue.
func ParseStyles(raw []string) ([]Style, error) {
	if len(raw) == 0 {
		return Catalogue(), nil
	}
	seen := make(map[Style]struct{}, len(raw))
	out := make([]Style, 0, len(raw))
	for _, item := range raw {
		style, err := ParseStyle(item)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[style]; ok {
			continue
		}
		seen[style] = struct{}{}
		out = append(out, style)
	}
	return out, nil
}
