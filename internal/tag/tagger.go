// Package tag assigns a category label to each record via an ordered
// waterfall of rules: exact lookup, fuzzy match against the exact table,
// amount-conditioned overrides, then regex patterns. The first stage
// that fires wins; an empty result means uncategorized.
package tag

import (
	"context"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/rs/zerolog"

	"github.com/dvloznov/bank-ingest/internal/model"
)

// fuzzyThreshold is the minimum normalized similarity ratio for the
// fuzzy stage to claim a match.
const fuzzyThreshold = 0.80

// Suggester proposes a category when no waterfall rule fired. It is an
// optional, best-effort fallback; errors only cost the suggestion.
type Suggester interface {
	Suggest(ctx context.Context, description string, amount float64, categories []string) (string, error)
}

// Tagger runs the classification waterfall.
type Tagger struct {
	suggester Suggester
	log       zerolog.Logger
}

// New creates a Tagger without a fallback suggester.
func New(log zerolog.Logger) *Tagger {
	return &Tagger{log: log}
}

// NewWithSuggester creates a Tagger whose final stage consults s when no
// rule fired.
func NewWithSuggester(log zerolog.Logger, s Suggester) *Tagger {
	return &Tagger{suggester: s, log: log}
}

// ShouldFilter reports whether a transaction is known non-economic noise
// that must be removed entirely before tagging (not merely left
// untagged).
func (t *Tagger) ShouldFilter(description string) bool {
	for _, p := range dropPatterns {
		if p.MatchString(description) {
			return true
		}
	}
	return false
}

// Tag returns the category for a description and amount, or the empty
// string when nothing fires. The caller treats empty as "Uncategorized".
func (t *Tagger) Tag(ctx context.Context, description, amount string) string {
	desc := strings.TrimSpace(description)

	// Stage 1: exact lookup.
	if tag, ok := exactTags[desc]; ok {
		return tag
	}

	// Stage 2: fuzzy match against the exact-table keys. The best ratio
	// at or above the threshold wins; an exact match never reaches here.
	if tag := fuzzyLookup(desc); tag != "" {
		return tag
	}

	// Stage 3: amount-conditioned overrides, before generic patterns.
	if v, err := model.ParseAmount(amount); err == nil {
		upper := strings.ToUpper(desc)
		abs := v
		if abs < 0 {
			abs = -abs
		}
		for _, rule := range amountOverrides {
			if strings.Contains(upper, rule.token) && abs > rule.threshold {
				return rule.tag
			}
		}
	}

	// Stage 4: ordered regex patterns, first match wins.
	for _, rule := range regexRules {
		if rule.pattern.MatchString(desc) {
			return rule.tag
		}
	}

	// Stage 5: optional model-backed suggestion. Never alters the rule
	// precedence above; failure means an empty tag.
	if t.suggester != nil {
		v, _ := model.ParseAmount(amount)
		suggestion, err := t.suggester.Suggest(ctx, desc, v, KnownCategories())
		if err != nil {
			t.log.Warn().Err(err).Str("description", desc).Msg("tag suggestion failed")
			return ""
		}
		return suggestion
	}

	return ""
}

// fuzzyLookup returns the category of the best-matching exact-table key
// with similarity >= fuzzyThreshold, or "".
func fuzzyLookup(desc string) string {
	norm := normalize(desc)
	params := levenshtein.NewParams()

	best := ""
	bestRatio := 0.0
	for key, tag := range exactTags {
		ratio := levenshtein.Similarity(norm, normalize(key), params)
		if ratio >= fuzzyThreshold && ratio > bestRatio {
			best = tag
			bestRatio = ratio
		}
	}
	return best
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
