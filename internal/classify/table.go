package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"texture-extractor/internal/models"
)

// ErrUnclassifiable is returned when a path matches no rule.
var ErrUnclassifiable = errors.New("unclassifiable file")

// Rule maps a case-insensitive path substring to a class label.
type Rule struct {
	Pattern string
	Label   models.ClassLabel
}

// DefaultRules in match priority order.
var DefaultRules = []Rule{
	{Pattern: "glioma", Label: models.Glioma},
	{Pattern: "meningioma", Label: models.Meningioma},
	{Pattern: "pituitary", Label: models.Pituitary},
	{Pattern: "notumor", Label: models.NoTumor},
}

// MatchError carries the path that no rule matched.
type MatchError struct {
	Path string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("no class pattern matches path %q", e.Path)
}

func (e *MatchError) Unwrap() error {
	return ErrUnclassifiable
}

// Table is an ordered, validated list of rules. The first matching rule wins.
type Table struct {
	rules []Rule
}

// NewTable lowercases patterns and validates the result.
func NewTable(rules []Rule) (*Table, error) {
	normalized := lo.Map(rules, func(r Rule, _ int) Rule {
		return Rule{Pattern: strings.ToLower(strings.TrimSpace(r.Pattern)), Label: r.Label}
	})

	t := &Table{rules: normalized}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func DefaultTable() *Table {
	t, err := NewTable(DefaultRules)
	if err != nil {
		panic(fmt.Sprintf("default class table is invalid: %v", err))
	}
	return t
}

func (t *Table) Validate() error {
	if len(t.rules) == 0 {
		return fmt.Errorf("class table has no rules")
	}

	for i, r := range t.rules {
		if r.Pattern == "" {
			return fmt.Errorf("class rule %d has an empty pattern", i)
		}
		if !r.Label.Valid() {
			return fmt.Errorf("class rule %q has unknown label %d", r.Pattern, int(r.Label))
		}
	}

	patterns := lo.Map(t.rules, func(r Rule, _ int) string { return r.Pattern })
	if dups := lo.FindDuplicates(patterns); len(dups) > 0 {
		return fmt.Errorf("class table repeats patterns: %s", strings.Join(dups, ", "))
	}

	return nil
}

func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Classify returns the label of the first rule whose pattern occurs in path.
func (t *Table) Classify(path string) (models.ClassLabel, error) {
	lower := strings.ToLower(path)
	for _, r := range t.rules {
		if strings.Contains(lower, r.Pattern) {
			return r.Label, nil
		}
	}
	return 0, &MatchError{Path: path}
}

// ParseRules reads "pattern=label" pairs separated by commas, in priority order.
func ParseRules(s string) ([]Rule, error) {
	var rules []Rule
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		pattern, label, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("class rule %q is not pattern=label", part)
		}

		n, err := strconv.Atoi(strings.TrimSpace(label))
		if err != nil {
			return nil, fmt.Errorf("class rule %q: label: %w", part, err)
		}

		rules = append(rules, Rule{Pattern: strings.TrimSpace(pattern), Label: models.ClassLabel(n)})
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("no class rules in %q", s)
	}
	return rules, nil
}
