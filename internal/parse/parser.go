// Package parse turns a staged export file into intermediate records.
// There is one strategy per source file type, selected by the type the
// classifier already assigned. Row-level failures are logged and the row
// dropped; a malformed row never aborts its file.
package parse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bank-ingest/internal/classify"
	"github.com/dvloznov/bank-ingest/internal/model"
	"github.com/dvloznov/bank-ingest/internal/staging"
)

// Result carries the records parsed from one file plus its counters.
type Result struct {
	Records []*model.Record
	Parsed  int
	Skipped int
}

// Staged parses one classified working-area file with the strategy its
// type prefix selects.
func Staged(log zerolog.Logger, file staging.StagedFile) (*Result, error) {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("Staged: reading %q: %w", file.Path, err)
	}
	text, _, err := classify.DecodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("Staged: decoding %q: %w", file.Path, err)
	}

	rows, err := readRows(text)
	if err != nil {
		return nil, fmt.Errorf("Staged: %w", err)
	}

	log = log.With().Str("file", file.OriginalName).Str("type", string(file.Type)).Logger()

	switch file.Type {
	case model.TypeCheckingA:
		return parseCheckingA(log, rows, file.OriginalName), nil
	case model.TypeCreditA:
		return parseCreditA(log, rows, file.OriginalName), nil
	case model.TypeCreditB:
		return parseCreditB(log, rows), nil
	default:
		return nil, fmt.Errorf("Staged: no parse strategy for type %q", file.Type)
	}
}

// readRows reads every CSV row of the decoded text, tolerating ragged
// column counts.
func readRows(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readRows: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCheckingA handles the checking export: header at row index 6,
// data from row 7 onward, columns date/description/amount.
func parseCheckingA(log zerolog.Logger, rows [][]string, originalName string) *Result {
	res := &Result{}
	spender := SpenderFromFilename(originalName)

	// Data starts after the header at row index 6.
	if len(rows) < 8 {
		return res
	}
	for i, row := range rows[7:] {
		rec, ok := buildRecord(log, i+8, row, 0, 1, 2, spender, model.TypeCheckingA)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
		res.Parsed++
	}
	return res
}

// parseCreditA handles the first credit-card export: header at row 0,
// Posted Date -> date, Payee -> description, Amount -> amount.
func parseCreditA(log zerolog.Logger, rows [][]string, originalName string) *Result {
	res := &Result{}
	spender := SpenderFromFilename(originalName)

	if len(rows) <= 1 {
		return res
	}
	for i, row := range rows[1:] {
		rec, ok := buildRecord(log, i+2, row, 0, 2, 4, spender, model.TypeCreditA)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
		res.Parsed++
	}
	return res
}

// parseCreditB handles the second credit-card export. The source encodes
// debits as positive amounts, so every amount is sign-flipped to match
// the negative-is-outflow convention of the other types. A flip failure
// (non-numeric amount) logs a warning and passes the raw cell through
// unflipped. The spender comes from the Card Member column via the alias
// table.
func parseCreditB(log zerolog.Logger, rows [][]string) *Result {
	res := &Result{}

	if len(rows) <= 1 {
		return res
	}
	cols := creditBColumns(rows[0])

	for i, row := range rows[1:] {
		line := i + 2
		if cols.amount >= len(row) || cols.cardMember >= len(row) {
			log.Warn().Int("line", line).Msg("row has too few columns, skipping")
			res.Skipped++
			continue
		}

		date, desc, amount := strings.TrimSpace(row[cols.date]), strings.TrimSpace(row[cols.desc]), strings.TrimSpace(row[cols.amount])
		if date == "" || desc == "" || amount == "" {
			log.Warn().Int("line", line).Msg("blank required field, skipping row")
			res.Skipped++
			continue
		}

		day, err := model.ParseDate(date)
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("unparseable date, skipping row")
			res.Skipped++
			continue
		}

		// Sign flip. On failure the raw value survives unflipped.
		amountOut := amount
		if v, err := model.ParseAmount(amount); err == nil {
			amountOut = model.FormatAmount(-v)
		} else {
			log.Warn().Int("line", line).Str("amount", amount).Msg("amount not numeric, passing through unflipped")
		}

		res.Records = append(res.Records, &model.Record{
			Date:        day,
			Description: desc,
			Amount:      amountOut,
			Spender:     ResolveCardMember(row[cols.cardMember]),
			Source:      string(model.TypeCreditB),
			Type:        model.TypeForAmount(amountOut),
		})
		res.Parsed++
	}
	return res
}

// creditBLayout holds resolved column positions for the credit-b export,
// which the classifier accepts in a flexible >=4 column form.
type creditBLayout struct {
	date, desc, cardMember, amount int
}

func creditBColumns(header []string) creditBLayout {
	// Fixed positions per the published layout; the header is consulted
	// only to survive the lenient variants the classifier lets through.
	cols := creditBLayout{date: 0, desc: 1, cardMember: 2, amount: 4}
	if len(header) == 4 {
		cols.amount = 3
	}
	for i, cell := range header {
		switch c := strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF")); {
		case strings.Contains(c, "Card Member"):
			cols.cardMember = i
		case strings.Contains(c, "Amount"):
			cols.amount = i
		}
	}
	return cols
}

// buildRecord assembles one record from fixed column positions, applying
// the shared skip policy: blank date, description or amount skips the
// row, as does a structurally unparseable date or amount.
func buildRecord(log zerolog.Logger, line int, row []string, dateCol, descCol, amountCol int, spender string, source model.SourceFileType) (*model.Record, bool) {
	if amountCol >= len(row) || descCol >= len(row) {
		log.Warn().Int("line", line).Msg("row has too few columns, skipping")
		return nil, false
	}

	date, desc, amount := strings.TrimSpace(row[dateCol]), strings.TrimSpace(row[descCol]), strings.TrimSpace(row[amountCol])
	if date == "" || desc == "" || amount == "" {
		log.Warn().Int("line", line).Msg("blank required field, skipping row")
		return nil, false
	}

	day, err := model.ParseDate(date)
	if err != nil {
		log.Warn().Int("line", line).Err(err).Msg("unparseable date, skipping row")
		return nil, false
	}
	v, err := model.ParseAmount(amount)
	if err != nil {
		log.Warn().Int("line", line).Str("amount", amount).Msg("unparseable amount, skipping row")
		return nil, false
	}

	amountOut := model.FormatAmount(v)
	return &model.Record{
		Date:        day,
		Description: desc,
		Amount:      amountOut,
		Spender:     spender,
		Source:      string(source),
		Type:        model.TypeForAmount(amountOut),
	}, true
}
