// Package bigquery implements the persistence collaborator contract on a
// BigQuery dataset with accounts, categories and transactions tables.
package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/bank-ingest/internal/store"
)

const (
	accountsTable     = "accounts"
	categoriesTable   = "categories"
	transactionsTable = "transactions"
)

// Store is a BigQuery-backed implementation of store.Ledger. One client
// is held for the store's lifetime.
type Store struct {
	client  *bigquery.Client
	dataset string
}

// NewStore creates a Store for the given project and dataset, using
// Application Default Credentials.
func NewStore(ctx context.Context, projectID, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return NewStoreWithClient(client, dataset), nil
}

// NewStoreWithClient creates a Store around an existing client. The
// caller keeps ownership of the client's lifetime.
func NewStoreWithClient(client *bigquery.Client, dataset string) *Store {
	return &Store{client: client, dataset: dataset}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ResolveAccount implements store.AccountStore: look the account up by
// its (source, spender) key and create it when missing.
func (s *Store) ResolveAccount(ctx context.Context, userID, source, spender string) (*store.Account, error) {
	key := store.AccountKey(source, spender)

	q := s.client.Query(fmt.Sprintf(`
		SELECT account_id, user_id, source, spender, account_key
		FROM %s.%s
		WHERE user_id = @user_id AND account_key = @account_key
		LIMIT 1
	`, s.dataset, accountsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "account_key", Value: key},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ResolveAccount: query read: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == nil {
		return &store.Account{
			ID:      row.AccountID,
			UserID:  row.UserID,
			Source:  row.Source,
			Spender: row.Spender,
			Key:     row.AccountKey,
		}, nil
	}
	if err != iterator.Done {
		return nil, fmt.Errorf("ResolveAccount: iter next: %w", err)
	}

	// Not found: create.
	created := AccountRow{
		AccountID:  uuid.NewString(),
		UserID:     userID,
		Source:     source,
		Spender:    spender,
		AccountKey: key,
		CreatedTS:  time.Now(),
	}
	inserter := s.client.Dataset(s.dataset).Table(accountsTable).Inserter()
	if err := inserter.Put(ctx, &created); err != nil {
		return nil, fmt.Errorf("ResolveAccount: inserting account %q: %w", key, err)
	}

	return &store.Account{
		ID:      created.AccountID,
		UserID:  userID,
		Source:  source,
		Spender: spender,
		Key:     key,
	}, nil
}

// ResolveCategory implements store.CategoryStore. Lookup is
// case-insensitive so "dining" and "Dining" coalesce to one category;
// the first writer's casing is kept.
func (s *Store) ResolveCategory(ctx context.Context, userID, name string) (*store.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("ResolveCategory: name cannot be empty")
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT category_id, user_id, name
		FROM %s.%s
		WHERE user_id = @user_id AND UPPER(TRIM(name)) = @name
		ORDER BY created_ts
		LIMIT 1
	`, s.dataset, categoriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "name", Value: strings.ToUpper(trimmed)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ResolveCategory: query read: %w", err)
	}

	var row CategoryRow
	err = it.Next(&row)
	if err == nil {
		return &store.Category{ID: row.CategoryID, UserID: row.UserID, Name: row.Name}, nil
	}
	if err != iterator.Done {
		return nil, fmt.Errorf("ResolveCategory: iter next: %w", err)
	}

	created := CategoryRow{
		CategoryID: uuid.NewString(),
		UserID:     userID,
		Name:       trimmed,
		CreatedTS:  time.Now(),
	}
	inserter := s.client.Dataset(s.dataset).Table(categoriesTable).Inserter()
	if err := inserter.Put(ctx, &created); err != nil {
		return nil, fmt.Errorf("ResolveCategory: inserting category %q: %w", trimmed, err)
	}

	return &store.Category{ID: created.CategoryID, UserID: userID, Name: trimmed}, nil
}

// TransactionExists implements store.TransactionStore with an exact
// match on (date, amount, description) within the user scope.
func (s *Store) TransactionExists(ctx context.Context, userID string, date civil.Date, amount float64, description string) (bool, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT transaction_id
		FROM %s.%s
		WHERE user_id = @user_id
		  AND transaction_date = @transaction_date
		  AND amount = @amount
		  AND description = @description
		LIMIT 1
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_date", Value: date.String()},
		{Name: "amount", Value: amount},
		{Name: "description", Value: description},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("TransactionExists: query read: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == nil {
		return true, nil
	}
	if err == iterator.Done {
		return false, nil
	}
	return false, fmt.Errorf("TransactionExists: iter next: %w", err)
}

// InsertTransactions implements store.TransactionStore.
func (s *Store) InsertTransactions(ctx context.Context, txs []*store.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		id := tx.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows = append(rows, &TransactionRow{
			TransactionID:   id,
			UserID:          tx.UserID,
			AccountID:       tx.AccountID,
			CategoryID:      tx.CategoryID,
			TransactionDate: tx.Date,
			Description:     tx.Description,
			Amount:          tx.Amount,
			Direction:       tx.Type,
			Processed:       tx.Processed,
			CreatedTS:       time.Now(),
		})
	}

	inserter := s.client.Dataset(s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

// Ensure Store implements the full collaborator surface.
var _ store.Ledger = (*Store)(nil)
