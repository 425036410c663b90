package parse

import (
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/bank-ingest/internal/logger"
	"github.com/dvloznov/bank-ingest/internal/model"
	"github.com/dvloznov/bank-ingest/internal/staging"
)

func stageSample(t *testing.T, typ model.SourceFileType, originalName, content string) staging.StagedFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, string(typ)+"__"+originalName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return staging.StagedFile{Path: path, Type: typ, OriginalName: originalName}
}

const checkingContent = `Description,,Summary Amt.
,,
Beginning balance as of 01/01/2023,,"1,000.00"
Total credits,,"2,500.00"
Total debits,,"-1,800.00"
Ending balance as of 01/31/2023,,"1,700.00"
Date,Description,Amount,Running Bal.
01/03/2023,Payroll Deposit,"2,500.00","3,500.00"
01/05/2023,GROCERY MART #12,-82.50,"3,417.50"
01/06/2023,,"-5.00","3,412.50"
01/07/2023,PHARMACY,,"3,412.50"
`

func TestParseCheckingA(t *testing.T) {
	log := logger.NewWithWriter(os.Stderr)
	file := stageSample(t, model.TypeCheckingA, "jordan_checking.csv", checkingContent)

	res, err := Staged(log, file)
	if err != nil {
		t.Fatalf("Staged: %v", err)
	}
	if res.Parsed != 2 || res.Skipped != 2 {
		t.Fatalf("parsed=%d skipped=%d, want 2/2", res.Parsed, res.Skipped)
	}

	first := res.Records[0]
	if first.Date != (civil.Date{Year: 2023, Month: 1, Day: 3}) {
		t.Errorf("date = %v", first.Date)
	}
	if first.Amount != "2500.00" || first.Type != model.TxnCredit {
		t.Errorf("amount/type = %q/%q", first.Amount, first.Type)
	}
	if first.Spender != "jordan" {
		t.Errorf("spender = %q, want jordan (from filename)", first.Spender)
	}
	if first.Source != "checking-a" {
		t.Errorf("source = %q", first.Source)
	}

	second := res.Records[1]
	if second.Amount != "-82.50" || second.Type != model.TxnDebit {
		t.Errorf("debit row amount/type = %q/%q", second.Amount, second.Type)
	}
}

func TestParseCheckingAHeaderOnly(t *testing.T) {
	log := logger.NewWithWriter(os.Stderr)
	headerOnly := `Description,,Summary Amt.
,,
Beginning balance as of 01/01/2023,,"1,000.00"
Total credits,,"0.00"
Total debits,,"0.00"
Ending balance as of 01/31/2023,,"1,000.00"
Date,Description,Amount,Running Bal.
`
	file := stageSample(t, model.TypeCheckingA, "jordan_checking.csv", headerOnly)

	res, err := Staged(log, file)
	if err != nil {
		t.Fatalf("Staged: %v", err)
	}
	if res.Parsed != 0 || res.Skipped != 0 || len(res.Records) != 0 {
		t.Fatalf("parsed=%d skipped=%d records=%d, want all zero", res.Parsed, res.Skipped, len(res.Records))
	}
}

func TestParseCreditA(t *testing.T) {
	log := logger.NewWithWriter(os.Stderr)
	content := "Posted Date,Reference Number,Payee,Address,Amount\n" +
		"01/04/2023,2469216300,COFFEE SHOP 042,SPRINGFIELD MA,-4.50\n" +
		"01/06/2023,2469216301,BOOKSTORE,SPRINGFIELD MA,\n"
	file := stageSample(t, model.TypeCreditA, "denis_visa.csv", content)

	res, err := Staged(log, file)
	if err != nil {
		t.Fatalf("Staged: %v", err)
	}
	if res.Parsed != 1 || res.Skipped != 1 {
		t.Fatalf("parsed=%d skipped=%d, want 1/1", res.Parsed, res.Skipped)
	}
	rec := res.Records[0]
	if rec.Description != "COFFEE SHOP 042" {
		t.Errorf("description = %q, want payee column", rec.Description)
	}
	if rec.Spender != "denis" || rec.Source != "credit-a" {
		t.Errorf("spender/source = %q/%q", rec.Spender, rec.Source)
	}
}

// Sign convention: every numeric credit-b amount a parses to -a.
func TestParseCreditBSignFlip(t *testing.T) {
	log := logger.NewWithWriter(os.Stderr)
	content := "Date,Description,Card Member,Account #,Amount\n" +
		"01/04/2023,RIDESHARE TRIP,JORDAN LEE,-71002,18.40\n" +
		"01/05/2023,REFUND,JORDAN LEE,-71002,-12.00\n" +
		"01/06/2023,HELD CHARGE,UNKNOWN PERSON,-71002,pending\n"
	file := stageSample(t, model.TypeCreditB, "amex.csv", content)

	res, err := Staged(log, file)
	if err != nil {
		t.Fatalf("Staged: %v", err)
	}
	if res.Parsed != 3 || res.Skipped != 0 {
		t.Fatalf("parsed=%d skipped=%d, want 3/0", res.Parsed, res.Skipped)
	}

	if got := res.Records[0].Amount; got != "-18.40" {
		t.Errorf("debit amount = %q, want -18.40 (flipped)", got)
	}
	if res.Records[0].Type != model.TxnDebit {
		t.Errorf("flipped debit type = %q", res.Records[0].Type)
	}
	if got := res.Records[1].Amount; got != "12.00" {
		t.Errorf("credit amount = %q, want 12.00 (flipped)", got)
	}

	// Flip failure: raw value passes through unflipped.
	if got := res.Records[2].Amount; got != "pending" {
		t.Errorf("non-numeric amount = %q, want raw passthrough", got)
	}

	// Alias table maps the card member; unmapped names pass through.
	if res.Records[0].Spender != "jordan" {
		t.Errorf("spender = %q, want alias jordan", res.Records[0].Spender)
	}
	if res.Records[2].Spender != "UNKNOWN PERSON" {
		t.Errorf("unmapped spender = %q, want passthrough", res.Records[2].Spender)
	}
}

func TestParseCreditBLenientLayout(t *testing.T) {
	log := logger.NewWithWriter(os.Stderr)
	content := "Date,Description,Card Member,Amount\n" +
		"01/04/2023,TRIP,JORDAN LEE,18.40\n"
	file := stageSample(t, model.TypeCreditB, "amex.csv", content)

	res, err := Staged(log, file)
	if err != nil {
		t.Fatalf("Staged: %v", err)
	}
	if res.Parsed != 1 {
		t.Fatalf("parsed=%d, want 1", res.Parsed)
	}
	if res.Records[0].Amount != "-18.40" {
		t.Errorf("amount = %q, want -18.40", res.Records[0].Amount)
	}
}

func TestSpenderFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"jordan_march.csv", "jordan"},
		{"Denis_2023_visa.csv", "denis"},
		{"statement.csv", ""},
	}
	for _, tt := range tests {
		if got := SpenderFromFilename(tt.name); got != tt.want {
			t.Errorf("SpenderFromFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveCardMember(t *testing.T) {
	if got := ResolveCardMember("jordan lee"); got != "jordan" {
		t.Errorf("alias lookup should be case-insensitive, got %q", got)
	}
	if got := ResolveCardMember("  SOMEONE ELSE  "); got != "SOMEONE ELSE" {
		t.Errorf("passthrough = %q", got)
	}
}
