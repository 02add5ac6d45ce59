package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

// TransactionRepository provides read access to stored transactions.
type TransactionRepository interface {
	// QueryTransactionsForUser returns the user's transactions between
	// startDate and endDate inclusive.
	QueryTransactionsForUser(ctx context.Context, userID string, startDate, endDate time.Time) ([]*TransactionRow, error)
}

// BigQueryTransactionRepository is the concrete implementation of
// TransactionRepository. It holds a shared BigQuery client to avoid
// creating a new connection for each query.
type BigQueryTransactionRepository struct {
	client *bigquery.Client
	table  Table
}

// NewBigQueryTransactionRepository creates a repository with its own client.
func NewBigQueryTransactionRepository(ctx context.Context, projectID, datasetID string) (*BigQueryTransactionRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{
		client: client,
		table:  Table{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// QueryTransactionsForUser delegates to QueryTransactionsForUserWithClient with the shared client.
func (r *BigQueryTransactionRepository) QueryTransactionsForUser(ctx context.Context, userID string, startDate, endDate time.Time) ([]*TransactionRow, error) {
	return QueryTransactionsForUserWithClient(ctx, r.client, r.table, userID, startDate, endDate)
}

var _ TransactionRepository = (*BigQueryTransactionRepository)(nil)
