package builder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups expenses that carry no category.
const UncategorizedLabel = "Sem categoria"

// DefaultTopCategories is how many spending categories a report lists.
const DefaultTopCategories = 5

// ErrIncompatibleData is returned when financial data cannot be summarized.
var ErrIncompatibleData = errors.New("incompatible financial data")

var hundred = decimal.NewFromInt(100)

// Validate checks that data can be summarized: one recipient, one currency.
func Validate(data *report.FinancialData) error {
	if data == nil {
		return fmt.Errorf("%w: no data", ErrIncompatibleData)
	}
	if data.Currency == "" {
		return fmt.Errorf("%w: currency is not set", ErrIncompatibleData)
	}
	if data.Period.End.Before(data.Period.Start) {
		return fmt.Errorf("%w: period ends before it starts", ErrIncompatibleData)
	}
	for _, tx := range data.Transactions {
		if !strings.EqualFold(tx.Currency, data.Currency) {
			return fmt.Errorf("%w: transaction %s is in %s, report is in %s",
				ErrIncompatibleData, tx.ID, tx.Currency, data.Currency)
		}
	}
	return nil
}

// Summarize computes the figures and the top spending categories of data.
// Data must already have passed Validate.
func Summarize(data *report.FinancialData, topN int) (report.Figures, []report.CategoryTotal) {
	var fig report.Figures
	byCategory := make(map[string]decimal.Decimal)

	for _, tx := range data.Transactions {
		fig.TransactionCount++
		if tx.Amount.IsPositive() {
			fig.Income = fig.Income.Add(tx.Amount)
			continue
		}
		spent := tx.Amount.Abs()
		fig.Expenses = fig.Expenses.Add(spent)

		cat := strings.TrimSpace(tx.Category)
		if cat == "" {
			cat = UncategorizedLabel
		}
		byCategory[cat] = byCategory[cat].Add(spent)
	}

	fig.Net = fig.Income.Sub(fig.Expenses)
	if fig.Income.IsPositive() {
		fig.SavingsRate = fig.Net.Div(fig.Income).Mul(hundred).Round(1)
	}

	return fig, topCategories(byCategory, topN)
}

func topCategories(byCategory map[string]decimal.Decimal, topN int) []report.CategoryTotal {
	totals := make([]report.CategoryTotal, 0, len(byCategory))
	for name, total := range byCategory {
		if total.IsZero() {
			continue
		}
		totals = append(totals, report.CategoryTotal{Category: name, Total: total})
	}

	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})

	if topN > 0 && len(totals) > topN {
		totals = totals[:topN]
	}
	return totals
}
