package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// SourceFileType identifies which export layout a staged file uses. The
// type is assigned once by the classifier and never changes mid-pipeline;
// it selects both the parse strategy and the column mapping.
type SourceFileType string

const (
	// TypeCheckingA is the checking-account export: header at row index 6,
	// four columns (Date, Description, Amount, Running Bal.).
	TypeCheckingA SourceFileType = "checking-a"

	// TypeCreditA is the first credit-card export: header at row index 0,
	// five columns (Posted Date, Reference Number, Payee, Address, Amount).
	TypeCreditA SourceFileType = "credit-a"

	// TypeCreditB is the second credit-card export: header at row index 0,
	// five columns (Date, Description, Card Member, Account #, Amount),
	// with debits encoded as positive amounts.
	TypeCreditB SourceFileType = "credit-b"

	// TypeUnknown means no classification rule matched; the file is
	// rejected and never parsed.
	TypeUnknown SourceFileType = "unknown"
)

// KnownTypes lists every type a parser exists for, in classifier order.
var KnownTypes = []SourceFileType{TypeCheckingA, TypeCreditA, TypeCreditB}

// TxnType is the inflow/outflow direction derived from the amount sign.
type TxnType string

const (
	TxnCredit TxnType = "Credit"
	TxnDebit  TxnType = "Debit"
)

// Record is the canonical row shape produced by every parser. It is
// mutated in place by the transfer filter (removal), the duplicate
// flagger (Duplicate field) and the tagger (Tag field).
//
// Amount is kept as text: duplicate grouping relies on exact equality,
// and a credit-b row whose amount failed the sign flip carries the raw
// cell through unchanged. The persist step parses it to a number.
type Record struct {
	Date        civil.Date
	Description string
	Amount      string
	Spender     string
	Source      string
	Type        TxnType
	Tag         string
	Duplicate   string
}

// CSVHeader is the stable column order of the canonical intermediate file.
var CSVHeader = []string{"Date", "Description", "Amount", "Spender", "Source", "Type", "Tag", "Duplicate"}

// CSVRow renders the record in canonical column order.
func (r *Record) CSVRow() []string {
	return []string{
		fmt.Sprintf("%02d/%02d/%04d", r.Date.Month, r.Date.Day, r.Date.Year),
		r.Description,
		r.Amount,
		r.Spender,
		r.Source,
		string(r.Type),
		r.Tag,
		r.Duplicate,
	}
}

// RecordFromCSVRow rebuilds a record from a canonical intermediate row.
func RecordFromCSVRow(row []string) (*Record, error) {
	if len(row) != len(CSVHeader) {
		return nil, fmt.Errorf("RecordFromCSVRow: got %d columns, want %d", len(row), len(CSVHeader))
	}
	date, err := ParseDate(row[0])
	if err != nil {
		return nil, fmt.Errorf("RecordFromCSVRow: %w", err)
	}
	return &Record{
		Date:        date,
		Description: row[1],
		Amount:      row[2],
		Spender:     row[3],
		Source:      row[4],
		Type:        TxnType(row[5]),
		Tag:         row[6],
		Duplicate:   row[7],
	}, nil
}

// dateLayouts are the source date formats accepted across all file types,
// tried in order. Two-digit years land in the 2000s per time.Parse.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
}

// ParseDate parses a source date cell into a calendar day.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("ParseDate: unrecognized date %q", s)
}

// ParseAmount parses a source amount cell into a signed value. Currency
// symbols, thousands separators and accounting-style parentheses are
// tolerated.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.TrimSpace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("ParseAmount: %q: %w", s, err)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// FormatAmount renders a parsed amount back into canonical two-decimal
// text form.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// TypeForAmount derives the transaction direction from the amount sign:
// positive (or zero) is an inflow, negative an outflow. An unparseable
// amount defaults to Debit, matching the credit-b passthrough case where
// the raw cell encoded a purchase.
func TypeForAmount(amount string) TxnType {
	v, err := ParseAmount(amount)
	if err != nil {
		return TxnDebit
	}
	if v < 0 {
		return TxnDebit
	}
	return TxnCredit
}
