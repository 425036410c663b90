package tag

import (
	"regexp"
	"sort"
)

// The rule tables below are versioned data, separate from the waterfall
// control flow in tagger.go. Evaluation order is fixed: exact table,
// fuzzy match against the exact table, amount-conditioned overrides,
// regex patterns.

// exactTags maps a full transaction description to its category.
var exactTags = map[string]string{
	"Payroll Deposit":    "Income",
	"GROCERY MART #12":   "Groceries",
	"COFFEE SHOP 042":    "Dining",
	"CITY WATER & SEWER": "Utilities",
	"METRO ELECTRIC CO":  "Utilities",
	"MTA*NYCT PAYGO":     "Transit",
	"NETFLIX.COM":        "Streaming",
	"CITY GYM MONTHLY":   "Fitness",
	"SPRINGFIELD RENT":   "Housing",
}

// amountRule tags a description containing token when the absolute
// amount exceeds the threshold, regardless of the generic patterns
// below.
type amountRule struct {
	token     string
	threshold float64
	tag       string
}

// amountOverrides are evaluated before the generic regex patterns.
var amountOverrides = []amountRule{
	{token: "COSTCO", threshold: 300, tag: "Bulk Shopping"},
	{token: "HOME DEPOT", threshold: 500, tag: "Home Improvement"},
}

// regexRule tags the first pattern that matches the description.
type regexRule struct {
	pattern *regexp.Regexp
	tag     string
}

// regexRules is ordered; the first match wins.
var regexRules = []regexRule{
	{regexp.MustCompile(`(?i)payroll|direct dep`), "Income"},
	{regexp.MustCompile(`(?i)grocery|market|supermkt|costco|trader joe`), "Groceries"},
	{regexp.MustCompile(`(?i)coffee|cafe|espresso`), "Dining"},
	{regexp.MustCompile(`(?i)restaurant|grill|pizza|diner|taqueria`), "Dining"},
	{regexp.MustCompile(`(?i)mta|njt|amtrak|transit|subway|metrocard`), "Transit"},
	{regexp.MustCompile(`(?i)airline|airways|delta air|united 0`), "Travel"},
	{regexp.MustCompile(`(?i)pharmacy|drug store|cvs|walgreens`), "Health"},
	{regexp.MustCompile(`(?i)netflix|hulu|spotify|hbo max`), "Streaming"},
	{regexp.MustCompile(`(?i)electric|gas co|water & sewer|internet`), "Utilities"},
	{regexp.MustCompile(`(?i)home depot|lowe's|hardware`), "Home Improvement"},
}

// dropPatterns identify non-economic noise removed before tagging, e.g.
// the card-bill autopay line that would double-count against the card's
// own purchase rows. Removal is irreversible for the run.
var dropPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)online payment to crd \d{4}`),
	regexp.MustCompile(`(?i)payment thank you`),
	regexp.MustCompile(`(?i)autopay payment received`),
	regexp.MustCompile(`(?i)electronic payment received`),
}

// KnownCategories returns the distinct category labels reachable by the
// rule tables, sorted for stable output. The optional suggester is
// constrained to this set.
func KnownCategories() []string {
	seen := make(map[string]bool)
	for _, tag := range exactTags {
		seen[tag] = true
	}
	for _, r := range amountOverrides {
		seen[r.tag] = true
	}
	for _, r := range regexRules {
		seen[r.tag] = true
	}

	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
