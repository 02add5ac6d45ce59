package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	parsingRunsTable  = "parsing_runs"
	dateFormat        = "2006-01-02"
)

// Table names a dataset location for the report queries.
type Table struct {
	ProjectID string
	DatasetID string
}

func (t Table) qualified(name string) string {
	return "`" + t.ProjectID + "." + t.DatasetID + "." + name + "`"
}

// transactionsByUserQuery selects a user's transactions in a date range. Only
// rows from successful parsing runs count, so superseded re-parses are
// excluded. Internal transfers are left out of the report.
func transactionsByUserQuery(t Table) string {
	return fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.user_id,
			t.account_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.raw_description,
			t.normalized_description,
			t.category_name,
			t.subcategory_name,
			t.is_internal_transfer,
			t.created_ts
		FROM %s t
		INNER JOIN %s pr
		  ON t.parsing_run_id = pr.parsing_run_id
		WHERE t.user_id = @user_id
		  AND t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND pr.status = 'SUCCESS'
		  AND COALESCE(t.is_internal_transfer, FALSE) = FALSE
		ORDER BY t.transaction_date, t.created_ts
	`, t.qualified(transactionsTable), t.qualified(parsingRunsTable))
}

// QueryTransactionsForUserWithClient reads the transactions of userID between
// startDate and endDate inclusive using the provided BigQuery client.
func QueryTransactionsForUserWithClient(
	ctx context.Context,
	client *bigquery.Client,
	table Table,
	userID string,
	startDate, endDate time.Time,
) ([]*TransactionRow, error) {
	q := client.Query(transactionsByUserQuery(table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsForUser: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsForUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
