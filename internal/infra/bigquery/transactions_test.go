package bigquery

import (
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
)

func TestTransactionsByUserQuery(t *testing.T) {
	q := transactionsByUserQuery(Table{ProjectID: "proj", DatasetID: "finance"})

	for _, want := range []string{
		"FROM `proj.finance.transactions` t",
		"INNER JOIN `proj.finance.parsing_runs` pr",
		"t.user_id = @user_id",
		"pr.status = 'SUCCESS'",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestTransactionRow_Description(t *testing.T) {
	row := &TransactionRow{RawDescription: "CARD PAYMENT TO TESCO 12/01"}
	if got := row.Description(); got != "CARD PAYMENT TO TESCO 12/01" {
		t.Errorf("expected raw description, got %q", got)
	}

	row.NormalizedDescription = bigquery.NullString{StringVal: "Tesco", Valid: true}
	if got := row.Description(); got != "Tesco" {
		t.Errorf("expected normalized description, got %q", got)
	}
}
