package classify

import (
	"strings"
	"testing"

	"github.com/dvloznov/bank-ingest/internal/model"
)

const checkingSample = `Description,,Summary Amt.
,,
Beginning balance as of 01/01/2023,,"1,000.00"
Total credits,,"2,500.00"
Total debits,,"-1,800.00"
Ending balance as of 01/31/2023,,"1,700.00"
Date,Description,Amount,Running Bal.
01/03/2023,Payroll Deposit,"2,500.00","3,500.00"
01/05/2023,GROCERY MART #12,-82.50,"3,417.50"
`

const creditASample = `Posted Date,Reference Number,Payee,Address,Amount
01/04/2023,24692163004100123456789,COFFEE SHOP 042,SPRINGFIELD MA,-4.50
01/06/2023,24692163006100987654321,BOOKSTORE,SPRINGFIELD MA,-19.99
`

const creditBSample = `Date,Description,Card Member,Account #,Amount
01/04/2023,RIDESHARE TRIP,JORDAN LEE,-71002,18.40
01/07/2023,AIRLINE TICKET,JORDAN LEE,-71002,412.00
`

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  model.SourceFileType
	}{
		{"checking layout", checkingSample, model.TypeCheckingA},
		{"credit-a layout", creditASample, model.TypeCreditA},
		{"credit-b layout", creditBSample, model.TypeCreditB},
		{
			"credit-b lenient fallback without account column name",
			"Date,Description,Card Member,Acct Account Ref\n01/04/2023,TRIP,JORDAN LEE,x\n",
			model.TypeCreditB,
		},
		{
			"empty amounts still classify by header",
			"Posted Date,Reference Number,Payee,Address,Amount\n",
			model.TypeCreditA,
		},
		{"unknown layout", "foo,bar\n1,2\n", model.TypeUnknown},
		{"empty-ish file", "\n", model.TypeUnknown},
		{"zero bytes", "", model.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify([]byte(tt.input))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

// Regression guard: moving the checking header off row index 6, or
// renaming a header cell, must break CHECKING_A classification.
func TestClassifyCheckingRequiresExactLayout(t *testing.T) {
	shifted := strings.Replace(checkingSample, "Description,,Summary Amt.\n", "", 1)
	got, err := Classify([]byte(shifted))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got == model.TypeCheckingA {
		t.Error("header shifted off row 6 still classified as checking")
	}

	renamed := strings.Replace(checkingSample, "Running Bal.", "Balance", 1)
	got, err = Classify([]byte(renamed))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got == model.TypeCheckingA {
		t.Error("renamed header cell still classified as checking")
	}
}

func TestClassifyWithBOM(t *testing.T) {
	withBOM := "\uFEFF" + creditASample
	got, err := Classify([]byte(withBOM))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != model.TypeCreditA {
		t.Errorf("Classify with BOM = %v, want %v", got, model.TypeCreditA)
	}
}

func TestClassifyWindows1252(t *testing.T) {
	// 0x92 is a Windows-1252 right single quote and invalid UTF-8, so
	// this exercises the encoding ladder past the UTF-8 rung.
	raw := append([]byte("Posted Date,Reference Number,Payee,Address,Amount\n01/04/2023,1,JOE"), 0x92)
	raw = append(raw, []byte("S DINER,TOWN MA,-12.00\n")...)

	got, err := Classify(raw)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != model.TypeCreditA {
		t.Errorf("Classify windows-1252 = %v, want %v", got, model.TypeCreditA)
	}
}

func TestDecodeText(t *testing.T) {
	text, enc, err := DecodeText([]byte("plain ascii"))
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if text != "plain ascii" || enc != "utf-8" {
		t.Errorf("DecodeText = %q via %q", text, enc)
	}

	_, enc, err = DecodeText([]byte{0x41, 0x92, 0x42})
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if enc != "windows-1252" {
		t.Errorf("encoding = %q, want windows-1252", enc)
	}
}
