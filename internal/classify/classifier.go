// Package classify inspects the leading rows of a raw export file and
// assigns it a source file type. Classification is a waterfall: rules are
// evaluated in a fixed order and the first match wins.
package classify

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/dvloznov/bank-ingest/internal/model"
)

// maxSniffRows bounds how much of a file the classifier reads. Every
// layout it recognizes declares itself within the first ten rows.
const maxSniffRows = 10

// candidateEncoding pairs a name (for diagnostics) with a decoder and a
// predicate deciding whether the decoder applies to the raw bytes.
type candidateEncoding struct {
	name    string
	accepts func(raw []byte) bool
	decoder *encoding.Decoder
}

// candidateEncodings is the ordered ladder tried until one decodes
// without error. UTF-8 first, then BOM-marked UTF-16, then the two
// single-byte encodings bank exports actually use.
var candidateEncodings = []candidateEncoding{
	{
		name:    "utf-8",
		accepts: utf8.Valid,
		decoder: unicode.UTF8BOM.NewDecoder(),
	},
	{
		name: "utf-16",
		accepts: func(raw []byte) bool {
			return bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF})
		},
		decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(),
	},
	{
		name:    "windows-1252",
		accepts: func([]byte) bool { return true },
		decoder: charmap.Windows1252.NewDecoder(),
	},
	{
		name:    "latin-1",
		accepts: func([]byte) bool { return true },
		decoder: charmap.ISO8859_1.NewDecoder(),
	},
}

// DecodeText decodes raw file bytes into text using the first candidate
// encoding that succeeds, returning the decoded text and the encoding
// name.
func DecodeText(raw []byte) (string, string, error) {
	for _, cand := range candidateEncodings {
		if !cand.accepts(raw) {
			continue
		}
		decoded, err := cand.decoder.Bytes(raw)
		if err != nil {
			continue
		}
		return string(decoded), cand.name, nil
	}
	return "", "", fmt.Errorf("DecodeText: no candidate encoding decodes this file")
}

// Classify assigns a source file type from the raw bytes of an export
// file. It never returns an error for content that merely fails every
// rule; that is TypeUnknown. Errors are reserved for undecodable input.
func Classify(raw []byte) (model.SourceFileType, error) {
	text, _, err := DecodeText(raw)
	if err != nil {
		return model.TypeUnknown, fmt.Errorf("Classify: %w", err)
	}

	return classifyRows(sniffRows(text)), nil
}

// ClassifyFile classifies the file at path.
func ClassifyFile(path string) (model.SourceFileType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.TypeUnknown, fmt.Errorf("ClassifyFile: reading %q: %w", path, err)
	}
	return Classify(raw)
}

// sniffRows parses at most maxSniffRows CSV rows from the decoded text.
// Ragged rows are expected: the checking export opens with summary lines
// of varying widths. Zero rows is not an error; the waterfall resolves
// an empty sniff to the unknown type.
func sniffRows(text string) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for len(rows) < maxSniffRows {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row ends the sniff; whatever was read so far
			// still feeds the waterfall.
			break
		}
		rows = append(rows, row)
	}
	return rows
}

// classifyRows runs the decision waterfall over the sniffed rows.
func classifyRows(rows [][]string) model.SourceFileType {
	// Rule 1: checking export declares itself on row index 6 with exactly
	// four columns.
	if len(rows) > 6 {
		h := rows[6]
		if len(h) == 4 &&
			rowContains(h, "Date") &&
			rowContains(h, "Description") &&
			rowContains(h, "Amount") &&
			rowContains(h, "Running Bal") {
			return model.TypeCheckingA
		}
	}

	if len(rows) == 0 {
		return model.TypeUnknown
	}
	h := rows[0]

	// Rule 2: credit-a header on row index 0, exactly five columns.
	if len(h) == 5 &&
		rowContains(h, "Posted Date") &&
		rowContains(h, "Reference Number") &&
		rowContains(h, "Payee") &&
		rowContains(h, "Address") &&
		rowContains(h, "Amount") {
		return model.TypeCreditA
	}

	// Rule 3: credit-b header on row index 0, exactly five columns.
	if len(h) == 5 &&
		rowContains(h, "Date") &&
		rowContains(h, "Description") &&
		rowContains(h, "Card Member") &&
		rowContains(h, "Account #") &&
		rowContains(h, "Amount") {
		return model.TypeCreditB
	}

	// Rule 4: lenient credit-b fallback for exports that rename or drop
	// the account column.
	if len(h) >= 4 &&
		rowContains(h, "Date") &&
		rowContains(h, "Description") &&
		rowContains(h, "Card Member") &&
		rowContains(h, "Account") {
		return model.TypeCreditB
	}

	return model.TypeUnknown
}

// rowContains reports whether any cell of the row contains want, after
// BOM stripping and trimming.
func rowContains(row []string, want string) bool {
	for _, cell := range row {
		if strings.Contains(cleanCell(cell), want) {
			return true
		}
	}
	return false
}

func cleanCell(cell string) string {
	return strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF"))
}
