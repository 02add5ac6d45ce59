package builder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func january() report.Period {
	return report.Period{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func tx(id, amount, category string) report.Transaction {
	return report.Transaction{
		ID:       id,
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.RequireFromString(amount),
		Currency: "BRL",
		Category: category,
	}
}

func sampleData() *report.FinancialData {
	return &report.FinancialData{
		Recipient: "alice@example.com",
		Period:    january(),
		Currency:  "BRL",
		Transactions: []report.Transaction{
			tx("t1", "5000", "Income"),
			tx("t2", "-1200", "Housing"),
			tx("t3", "-300.50", "Food"),
			tx("t4", "-499.50", "Food"),
			tx("t5", "-100", ""),
			tx("t6", "-50", "Transport"),
			tx("t7", "-50", "Health"),
			tx("t8", "-10", "Fun"),
		},
	}
}

func TestSummarize(t *testing.T) {
	fig, top := Summarize(sampleData(), DefaultTopCategories)

	assert.Equal(t, "5000", fig.Income.String())
	assert.Equal(t, "2210", fig.Expenses.String())
	assert.Equal(t, "2790", fig.Net.String())
	assert.Equal(t, "55.8", fig.SavingsRate.String())
	assert.Equal(t, 8, fig.TransactionCount)

	require.Len(t, top, 5)
	assert.Equal(t, "Housing", top[0].Category)
	assert.Equal(t, "Food", top[1].Category)
	assert.Equal(t, "800", top[1].Total.String())
	assert.Equal(t, UncategorizedLabel, top[2].Category)
	// ties are ordered by name
	assert.Equal(t, "Health", top[3].Category)
	assert.Equal(t, "Transport", top[4].Category)
}

func TestSummarize_NoIncome(t *testing.T) {
	data := &report.FinancialData{Currency: "BRL", Transactions: []report.Transaction{tx("t1", "-20", "Food")}}
	fig, _ := Summarize(data, 0)

	assert.True(t, fig.SavingsRate.IsZero())
	assert.Equal(t, "-20", fig.Net.String())
}

func TestValidate(t *testing.T) {
	mixed := sampleData()
	mixed.Transactions[1].Currency = "USD"

	backwards := sampleData()
	backwards.Period.End = backwards.Period.Start.AddDate(0, 0, -1)

	noCurrency := sampleData()
	noCurrency.Currency = ""

	for name, data := range map[string]*report.FinancialData{
		"nil":         nil,
		"mixed":       mixed,
		"backwards":   backwards,
		"no currency": noCurrency,
	} {
		t.Run(name, func(t *testing.T) {
			err := Validate(data)
			assert.True(t, errors.Is(err, ErrIncompatibleData), "got %v", err)
		})
	}

	assert.NoError(t, Validate(sampleData()))
}

func TestBuild_WithTemplateNarrator(t *testing.T) {
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	b := NewReportBuilder(nil, WithClock(func() time.Time { return now }))

	r, err := b.Build(context.Background(), sampleData())
	require.NoError(t, err)

	assert.Equal(t, report.Recipient("alice@example.com"), r.Recipient)
	assert.Equal(t, "Relatório financeiro de janeiro de 2024", r.Title)
	assert.Equal(t, "BRL", r.Currency)
	assert.Equal(t, now, r.GeneratedAt)
	assert.NotEmpty(t, r.Summary)
	assert.Contains(t, r.Summary, "R$5.000,00")
	assert.Contains(t, r.Summary, "economia de R$2.790,00")
	assert.Contains(t, r.Summary, "Housing")
	require.Len(t, r.Recommendations, 2)
	assert.True(t, strings.HasPrefix(r.Recommendations[0], "Ótimo trabalho"))
}

func TestBuild_DeficitRecommendation(t *testing.T) {
	data := sampleData()
	data.Transactions = append(data.Transactions, tx("t9", "-9000", "Housing"))

	r, err := NewReportBuilder(TemplateNarrator{}).Build(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, r.Summary, "déficit")
	assert.Contains(t, r.Recommendations[0], "superaram")
}

type narratorFunc func(ctx context.Context, r *report.Report) (*Narrative, error)

func (f narratorFunc) Narrate(ctx context.Context, r *report.Report) (*Narrative, error) {
	return f(ctx, r)
}

func TestBuild_NarratorFailureFailsBuild(t *testing.T) {
	boom := errors.New("quota exceeded")
	b := NewReportBuilder(narratorFunc(func(context.Context, *report.Report) (*Narrative, error) {
		return nil, boom
	}))

	r, err := b.Build(context.Background(), sampleData())
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, boom))
}

func TestBuild_EmptySummaryFailsBuild(t *testing.T) {
	b := NewReportBuilder(narratorFunc(func(context.Context, *report.Report) (*Narrative, error) {
		return &Narrative{Summary: "   ", Recommendations: []string{"x"}}, nil
	}))

	_, err := b.Build(context.Background(), sampleData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty summary")
}

func TestBuild_IncompatibleData(t *testing.T) {
	data := sampleData()
	data.Transactions[0].Currency = "EUR"

	_, err := NewReportBuilder(nil).Build(context.Background(), data)
	assert.True(t, errors.Is(err, ErrIncompatibleData))
}

func TestBuild_DropsBlankRecommendations(t *testing.T) {
	b := NewReportBuilder(narratorFunc(func(context.Context, *report.Report) (*Narrative, error) {
		return &Narrative{Summary: "ok", Recommendations: []string{" a ", "", "  "}}, nil
	}))

	r, err := b.Build(context.Background(), sampleData())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, r.Recommendations)
}
