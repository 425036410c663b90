// Package transfer removes internal self-to-self transfers from the
// staged record set. This runs once, globally, before duplicate
// detection: internal transfers are definitionally not duplicates and
// must not pollute duplicate-group keys or downstream totals.
package transfer

import (
	"regexp"

	"github.com/dvloznov/bank-ingest/internal/model"
)

// internalTransferPatterns is the fixed, ordered set of phrase patterns
// that mark a row as an internal transfer. Rule data only; adding a
// pattern must not require touching Filter.
var internalTransferPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)online banking transfer (to|from) (chk|sav) \d{4}`),
	regexp.MustCompile(`(?i)transfer to savings`),
	regexp.MustCompile(`(?i)transfer from savings`),
	regexp.MustCompile(`(?i)transfer to checking`),
	regexp.MustCompile(`(?i)transfer from checking`),
	regexp.MustCompile(`(?i)online scheduled transfer (to|from) (chk|sav) \d{4}`),
}

// IsInternalTransfer reports whether a description matches any of the
// internal-transfer phrase patterns.
func IsInternalTransfer(description string) bool {
	for _, p := range internalTransferPatterns {
		if p.MatchString(description) {
			return true
		}
	}
	return false
}

// Filter returns the records that are not internal transfers, plus how
// many were removed. Order is preserved.
func Filter(recs []*model.Record) ([]*model.Record, int) {
	kept := make([]*model.Record, 0, len(recs))
	removed := 0
	for _, rec := range recs {
		if IsInternalTransfer(rec.Description) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, removed
}
