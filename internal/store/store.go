// Package store defines the persistence collaborator contract the
// pipeline persists through. Accounts, categories and canonical
// transactions are owned by the external store, not by the pipeline;
// this package only names the operations it consumes.
package store

import (
	"context"

	"cloud.google.com/go/civil"
)

// Account is an external account entity, identified by the composite
// source+spender key within a user scope.
type Account struct {
	ID      string
	UserID  string
	Source  string
	Spender string
	Key     string
}

// Category is an external category entity, identified case-insensitively
// by name within a user scope.
type Category struct {
	ID     string
	UserID string
	Name   string
}

// Transaction is the canonical record accepted by the persistence layer,
// distinct from the pipeline's intermediate record.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	CategoryID  string
	Date        civil.Date
	Description string
	Amount      float64
	Type        string
	Processed   bool
}

// AccountKey derives the account lookup key: `source` when no spender
// was resolved, `source_spender` otherwise.
func AccountKey(source, spender string) string {
	if spender == "" {
		return source
	}
	return source + "_" + spender
}

// AccountStore resolves or creates accounts.
type AccountStore interface {
	// ResolveAccount returns the account for (source, spender), creating
	// it if it does not exist yet.
	ResolveAccount(ctx context.Context, userID, source, spender string) (*Account, error)
}

// CategoryStore resolves or creates categories. Lookup is
// case-insensitive: two names differing only in case coalesce to one
// category.
type CategoryStore interface {
	ResolveCategory(ctx context.Context, userID, name string) (*Category, error)
}

// TransactionStore checks for and inserts canonical transactions.
type TransactionStore interface {
	// TransactionExists reports whether an exact (date, amount,
	// description) match is already persisted in the user's scope.
	TransactionExists(ctx context.Context, userID string, date civil.Date, amount float64, description string) (bool, error)

	// InsertTransactions writes a batch of canonical transactions.
	InsertTransactions(ctx context.Context, txs []*Transaction) error
}

// Ledger is the full collaborator surface the orchestrator persists
// through.
type Ledger interface {
	AccountStore
	CategoryStore
	TransactionStore
}
