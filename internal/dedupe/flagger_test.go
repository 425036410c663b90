package dedupe

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/bank-ingest/internal/model"
)

func rec(spender, source, desc, amount string) *model.Record {
	return &model.Record{
		Date:        civil.Date{Year: 2023, Month: 1, Day: 5},
		Description: desc,
		Amount:      amount,
		Spender:     spender,
		Source:      source,
		Type:        model.TypeForAmount(amount),
	}
}

func TestFlagSingletons(t *testing.T) {
	recs := []*model.Record{
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "BOOKSTORE", "-19.99"),
	}

	flagged := Flag(recs)
	assert.Zero(t, flagged)
	for _, r := range recs {
		assert.Equal(t, FlagNo, r.Duplicate)
	}
}

func TestFlagIdenticalPair(t *testing.T) {
	recs := []*model.Record{
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
	}

	flagged := Flag(recs)
	require.Equal(t, 2, flagged, "all members of a duplicate group are flagged, not just extras")
	assert.Equal(t, "Yes (1 of 2)", recs[0].Duplicate)
	assert.Equal(t, "Yes (2 of 2)", recs[1].Duplicate)
}

func TestFlagPartitionsBySpenderAndSource(t *testing.T) {
	// Same row shape for two different spenders: no duplicates.
	recs := []*model.Record{
		rec("jordan", "credit-b", "COFFEE SHOP 042", "-4.50"),
		rec("denis", "credit-b", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
	}

	Flag(recs)
	for i, r := range recs {
		assert.Equal(t, FlagNo, r.Duplicate, "record %d crossed a partition boundary", i)
	}
}

func TestFlagGroupingIsOrderIndependent(t *testing.T) {
	a := []*model.Record{
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "BOOKSTORE", "-19.99"),
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
	}
	b := []*model.Record{
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "BOOKSTORE", "-19.99"),
	}

	Flag(a)
	Flag(b)

	// Identical rows land in the same group regardless of input order.
	assert.Equal(t, "Yes (1 of 2)", a[0].Duplicate)
	assert.Equal(t, "Yes (2 of 2)", a[2].Duplicate)
	assert.Equal(t, "Yes (1 of 2)", b[0].Duplicate)
	assert.Equal(t, "Yes (2 of 2)", b[1].Duplicate)
	assert.Equal(t, FlagNo, a[1].Duplicate)
	assert.Equal(t, FlagNo, b[2].Duplicate)
}

func TestFlagRoundTripException(t *testing.T) {
	// Exactly two identical transit-marked rows: a legitimate two-leg
	// round trip, both marked "No".
	pair := []*model.Record{
		rec("jordan", "credit-b", "MTA*NYCT PAYGO", "-2.90"),
		rec("jordan", "credit-b", "MTA*NYCT PAYGO", "-2.90"),
	}
	flagged := Flag(pair)
	assert.Zero(t, flagged)
	assert.Equal(t, FlagNo, pair[0].Duplicate)
	assert.Equal(t, FlagNo, pair[1].Duplicate)

	// Three or more identical transit-marked rows: the exception does
	// not apply, all are flagged.
	triple := []*model.Record{
		rec("jordan", "credit-b", "MTA*NYCT PAYGO", "-2.90"),
		rec("jordan", "credit-b", "MTA*NYCT PAYGO", "-2.90"),
		rec("jordan", "credit-b", "MTA*NYCT PAYGO", "-2.90"),
	}
	flagged = Flag(triple)
	require.Equal(t, 3, flagged)
	assert.Equal(t, "Yes (1 of 3)", triple[0].Duplicate)
	assert.Equal(t, "Yes (2 of 3)", triple[1].Duplicate)
	assert.Equal(t, "Yes (3 of 3)", triple[2].Duplicate)
}

func TestFlagTagParticipatesInGroupKey(t *testing.T) {
	a := rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50")
	b := rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50")
	a.Tag = "Dining"
	b.Tag = "Coffee"

	Flag([]*model.Record{a, b})
	assert.Equal(t, FlagNo, a.Duplicate)
	assert.Equal(t, FlagNo, b.Duplicate)
}

func TestFlagNeverDropsRecords(t *testing.T) {
	recs := []*model.Record{
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "COFFEE SHOP 042", "-4.50"),
		rec("jordan", "credit-a", "BOOKSTORE", "-19.99"),
	}
	before := len(recs)
	Flag(recs)
	assert.Len(t, recs, before)
	for i, r := range recs {
		assert.NotEmpty(t, r.Duplicate, "record %d left unflagged", i)
	}
}
