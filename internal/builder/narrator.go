package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-report/internal/moneyfmt"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/shopspring/decimal"
)

// Narrative is the prose part of a report.
type Narrative struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// Narrator writes the narrative for a report whose figures are already set.
type Narrator interface {
	Narrate(ctx context.Context, r *report.Report) (*Narrative, error)
}

// lowSavingsRate is the savings rate below which the template suggests cutting spend.
var lowSavingsRate = decimal.NewFromInt(10)

// TemplateNarrator produces a deterministic Portuguese narrative.
type TemplateNarrator struct{}

// Narrate implements Narrator.
func (TemplateNarrator) Narrate(_ context.Context, r *report.Report) (*Narrative, error) {
	fig := r.Figures
	cur := r.Currency

	var b strings.Builder
	fmt.Fprintf(&b, "No período %s você registrou %d transações. ", periodPhrase(r.Period), fig.TransactionCount)
	fmt.Fprintf(&b, "Receitas somaram %s e despesas %s, ", moneyfmt.Format(fig.Income, cur), moneyfmt.Format(fig.Expenses, cur))

	switch {
	case fig.Net.IsPositive():
		fmt.Fprintf(&b, "resultando em uma economia de %s (%s da renda).", moneyfmt.Format(fig.Net, cur), moneyfmt.Percent(fig.SavingsRate))
	case fig.Net.IsNegative():
		fmt.Fprintf(&b, "resultando em um déficit de %s.", moneyfmt.Format(fig.Net.Abs(), cur))
	default:
		b.WriteString("fechando o mês sem sobras.")
	}

	if len(r.TopCategories) > 0 {
		top := r.TopCategories[0]
		fmt.Fprintf(&b, " Sua maior categoria de gastos foi %s, com %s.", top.Category, moneyfmt.Format(top.Total, cur))
	}

	return &Narrative{
		Summary:         b.String(),
		Recommendations: templateRecommendations(r),
	}, nil
}

func templateRecommendations(r *report.Report) []string {
	fig := r.Figures
	var recs []string

	switch {
	case fig.Income.IsZero():
		recs = append(recs, "Nenhuma receita foi registrada no período; confira se todos os extratos foram importados.")
	case fig.Net.IsNegative():
		recs = append(recs, "Seus gastos superaram suas receitas. Revise despesas não essenciais no próximo mês.")
	case fig.SavingsRate.LessThan(lowSavingsRate):
		recs = append(recs, "Tente guardar pelo menos 10% da sua renda todos os meses.")
	default:
		recs = append(recs, "Ótimo trabalho! Considere direcionar parte da economia para uma reserva de emergência.")
	}

	if len(r.TopCategories) > 0 {
		top := r.TopCategories[0]
		recs = append(recs, fmt.Sprintf("Defina um limite mensal para %s, sua maior categoria de gastos.", top.Category))
	}
	return recs
}

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// periodPhrase renders "de janeiro de 2024" for whole months and
// "de 10/03/2024 a 09/04/2024" otherwise.
func periodPhrase(p report.Period) string {
	if p.Label() == p.Start.Format("2006-01") {
		return fmt.Sprintf("de %s de %d", monthNames[p.Start.Month()-1], p.Start.Year())
	}
	return fmt.Sprintf("de %s a %s", p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"))
}
