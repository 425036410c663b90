package bigquery

import (
	"time"

	"cloud.google.com/go/civil"
)

// AccountRow is the accounts table schema.
type AccountRow struct {
	AccountID  string    `bigquery:"account_id"`
	UserID     string    `bigquery:"user_id"`
	Source     string    `bigquery:"source"`
	Spender    string    `bigquery:"spender"`
	AccountKey string    `bigquery:"account_key"`
	CreatedTS  time.Time `bigquery:"created_ts"`
}

// CategoryRow is the categories table schema. Name keeps its original
// casing; lookups compare case-insensitively.
type CategoryRow struct {
	CategoryID string    `bigquery:"category_id"`
	UserID     string    `bigquery:"user_id"`
	Name       string    `bigquery:"name"`
	CreatedTS  time.Time `bigquery:"created_ts"`
}

// TransactionRow is the transactions table schema.
type TransactionRow struct {
	TransactionID   string     `bigquery:"transaction_id"`
	UserID          string     `bigquery:"user_id"`
	AccountID       string     `bigquery:"account_id"`
	CategoryID      string     `bigquery:"category_id"`
	TransactionDate civil.Date `bigquery:"transaction_date"`
	Description     string     `bigquery:"description"`
	Amount          float64    `bigquery:"amount"`
	Direction       string     `bigquery:"direction"`
	Processed       bool       `bigquery:"processed"`
	CreatedTS       time.Time  `bigquery:"created_ts"`
}
