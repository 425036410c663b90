// Package dedupe marks likely duplicates within the staged record set.
// It only ever annotates the Duplicate field; nothing is dropped here,
// and downstream consumers must filter on the flag.
package dedupe

import (
	"fmt"
	"strings"

	"github.com/dvloznov/bank-ingest/internal/model"
)

const (
	// FlagNo marks a record with no byte-identical sibling (or one
	// covered by the round-trip exception).
	FlagNo = "No"

	// roundTripMarker is the transit-fare keyword whose presence, in a
	// group of exactly two identical rows, identifies a legitimate
	// two-leg round trip rather than a duplicate.
	roundTripMarker = "MTA"
)

// FlagYes renders the duplicate annotation for the i-th member (1-based)
// of a group of n identical rows.
func FlagYes(i, n int) string {
	return fmt.Sprintf("Yes (%d of %d)", i, n)
}

type groupKey struct {
	spender, source string
	date            string
	description     string
	amount          string
	txnType         model.TxnType
	tag             string
}

// Flag mutates every record's Duplicate field in place and returns the
// number of records flagged as duplicates.
//
// Records are partitioned by (spender, source) first: duplicates are only
// meaningful within the same reporting account/person combination. Within
// a partition, rows identical on (date, description, amount, type, tag)
// form a group. Groups of one are "No". A group of exactly two whose
// description carries the transit marker is the round-trip exception:
// both legs are "No". Every other group of two or more flags ALL members
// "Yes (i of n)" in input order.
func Flag(recs []*model.Record) int {
	groups := make(map[groupKey][]*model.Record, len(recs))
	order := make([]groupKey, 0, len(recs))
	for _, rec := range recs {
		key := groupKey{
			spender:     rec.Spender,
			source:      rec.Source,
			date:        rec.Date.String(),
			description: rec.Description,
			amount:      rec.Amount,
			txnType:     rec.Type,
			tag:         rec.Tag,
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	flagged := 0
	for _, key := range order {
		group := groups[key]
		n := len(group)

		if n == 1 {
			group[0].Duplicate = FlagNo
			continue
		}
		if n == 2 && strings.Contains(key.description, roundTripMarker) {
			group[0].Duplicate = FlagNo
			group[1].Duplicate = FlagNo
			continue
		}
		for i, rec := range group {
			rec.Duplicate = FlagYes(i+1, n)
			flagged++
		}
	}
	return flagged
}
