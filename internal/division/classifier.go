// Package division groups community polygons into electoral divisions and
// answers "which division contains this point".
package division

import (
	"fmt"
	"strings"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// Rule maps a division to the keywords that identify its communities.
type Rule struct {
	Division models.DivisionName `mapstructure:"name" json:"name"`
	Keywords []string            `mapstructure:"keywords" json:"keywords"`
}

// Fallback decides the division of a community whose name matched no keyword.
type Fallback interface {
	// Assign receives the community's position in dataset order and the
	// divisions in priority order. ok=false leaves the community unassigned.
	Assign(index int, divisions []models.DivisionName) (div models.DivisionName, ok bool)
	Name() string
}

const (
	FallbackRoundRobin = "round_robin"
	FallbackExclude    = "exclude"
)

// NewFallback returns the fallback strategy registered under name.
func NewFallback(name string) (Fallback, error) {
	switch name {
	case "", FallbackRoundRobin:
		return RoundRobinFallback{}, nil
	case FallbackExclude:
		return ExcludeFallback{}, nil
	default:
		return nil, fmt.Errorf("unknown division fallback %q", name)
	}
}

// RoundRobinFallback assigns divisions[index mod len(divisions)].
// It is deterministic but carries no geographic meaning.
type RoundRobinFallback struct{}

func (RoundRobinFallback) Assign(index int, divisions []models.DivisionName) (models.DivisionName, bool) {
	if len(divisions) == 0 || index < 0 {
		return "", false
	}
	return divisions[index%len(divisions)], true
}

func (RoundRobinFallback) Name() string { return FallbackRoundRobin }

// ExcludeFallback leaves unmatched communities out of every division.
type ExcludeFallback struct{}

func (ExcludeFallback) Assign(int, []models.DivisionName) (models.DivisionName, bool) {
	return "", false
}

func (ExcludeFallback) Name() string { return FallbackExclude }

// Classifier assigns community names to divisions by keyword.
type Classifier struct {
	rules     []Rule
	upper     [][]string
	divisions []models.DivisionName
	fallback  Fallback
}

// NewClassifier validates the rules and prepares upper-cased keywords.
// Rule order is the match priority.
func NewClassifier(rules []Rule, fallback Fallback) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one division rule is required")
	}
	if fallback == nil {
		fallback = RoundRobinFallback{}
	}

	seen := make(map[models.DivisionName]bool, len(rules))
	c := &Classifier{fallback: fallback}
	for _, r := range rules {
		name := models.DivisionName(strings.TrimSpace(string(r.Division)))
		if name == "" {
			return nil, fmt.Errorf("division rule with empty name")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate division %q", name)
		}
		seen[name] = true

		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToUpper(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Division: name, Keywords: r.Keywords})
		c.upper = append(c.upper, kws)
		c.divisions = append(c.divisions, name)
	}
	return c, nil
}

// Classify returns the division for a community name at position index in
// dataset order. matched reports whether a keyword (not the fallback) decided.
func (c *Classifier) Classify(name string, index int) (div models.DivisionName, ok bool, matched bool) {
	upper := strings.ToUpper(name)
	for i, kws := range c.upper {
		for _, kw := range kws {
			if strings.Contains(upper, kw) {
				return c.divisions[i], true, true
			}
		}
	}
	div, ok = c.fallback.Assign(index, c.divisions)
	return div, ok, false
}

// Divisions returns the division names in priority order.
func (c *Classifier) Divisions() []models.DivisionName {
	out := make([]models.DivisionName, len(c.divisions))
	copy(out, c.divisions)
	return out
}

// FallbackName returns the name of the configured fallback strategy.
func (c *Classifier) FallbackName() string {
	return c.fallback.Name()
}

// Rules returns the rules in priority order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
