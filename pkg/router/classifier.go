// Package router classifies incoming queries into cost tiers. It decides
// whether a query can be answered for free from templates, needs the cheap
// model, or needs the expensive one, before any external call is made.
package router

import (
	"strings"
	"unicode/utf8"
)

// Length thresholds, in runes. Long queries escalate regardless of
// pattern content.
const (
	heavyLength   = 200
	complexLength = 100
)

// Classifier assigns a Decision to a query. It is a pure function over its
// input: no I/O, deterministic, total.
type Classifier struct{}

// NewClassifier creates a classifier. All patterns are package-level and
// compiled at init, so the zero value is equally usable.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Route classifies a query. Rules are evaluated in strict priority order
// and the first match wins:
//
//  1. heavy:   length > 200 runes, or a heavy pattern matches
//  2. complex: (location hint + proximity word), or a complex pattern
//     matches, or length > 100 runes
//  3. simple:  everything else, handled by templates at zero cost
func (c *Classifier) Route(query string, hasLocation bool) Decision {
	q := strings.TrimSpace(query)

	if c.isHeavy(q) {
		return Decision{
			Tier:            TierHeavy,
			MaxOutputTokens: 1500,
			QueryType:       QueryHeavy,
			Reason:          "Query phức tạp nhiều tầng",
		}
	}
	if c.isComplex(q, hasLocation) {
		return Decision{
			Tier:            TierLight,
			MaxOutputTokens: 800,
			QueryType:       QueryComplex,
			Reason:          "Query location/time/đa điều kiện",
		}
	}
	return Decision{
		Tier:            TierLocal,
		MaxOutputTokens: 256,
		QueryType:       QuerySimple,
		Reason:          "Simple – dùng template",
	}
}

func (c *Classifier) isHeavy(q string) bool {
	return utf8.RuneCountInString(q) > heavyLength || anyMatch(heavyPatterns, q)
}

func (c *Classifier) isComplex(q string, hasLocation bool) bool {
	if hasLocation && proximityPattern.MatchString(q) {
		return true
	}
	return anyMatch(complexPatterns, q) || utf8.RuneCountInString(q) > complexLength
}
