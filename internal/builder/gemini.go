package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-report/internal/report"
	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for narratives.
const DefaultModelName = "gemini-2.5-flash"

// ContentGenerator is the part of the genai client the narrator uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator asks a Gemini model to write the report narrative.
type GeminiNarrator struct {
	models ContentGenerator
	model  string
}

// GeminiConfig configures NewGeminiNarrator.
type GeminiConfig struct {
	// APIKey selects the Gemini API backend. When empty the client falls
	// back to GOOGLE_API_KEY or Vertex AI settings from the environment.
	APIKey string
	Model  string
}

// NewGeminiNarrator creates a genai client and wraps it in a narrator.
func NewGeminiNarrator(ctx context.Context, cfg GeminiConfig) (*GeminiNarrator, error) {
	cc := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiNarrator: create genai client: %w", err)
	}
	return NewGeminiNarratorWithGenerator(client.Models, cfg.Model), nil
}

// NewGeminiNarratorWithGenerator builds a narrator around an existing generator.
func NewGeminiNarratorWithGenerator(models ContentGenerator, model string) *GeminiNarrator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiNarrator{models: models, model: model}
}

const narratorInstruction = "Você é um assistente financeiro pessoal que escreve relatórios mensais em português do Brasil.\n" +
	"Escreva de forma clara, positiva e objetiva, sem inventar números.\n"

const narratorRules = "Regras:\n" +
	"- Use APENAS os números fornecidos no JSON abaixo.\n" +
	"- \"summary\": um parágrafo de 3 a 5 frases resumindo o mês.\n" +
	"- \"recommendations\": de 2 a 4 recomendações curtas e práticas.\n" +
	"- Responda SOMENTE com JSON válido no formato {\"summary\": string, \"recommendations\": [string]}.\n" +
	"- NÃO use blocos de código Markdown.\n"

// Narrate implements Narrator.
func (n *GeminiNarrator) Narrate(ctx context.Context, r *report.Report) (*Narrative, error) {
	facts, err := json.MarshalIndent(factsFor(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("GeminiNarrator: marshal facts: %w", err)
	}

	prompt := narratorRules + "\nDados do relatório:\n" + string(facts)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: narratorInstruction}}},
		ResponseMIMEType:  "application/json",
	}

	resp, err := n.models.GenerateContent(ctx, n.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("GeminiNarrator: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("GeminiNarrator: empty response from model")
	}

	var narrative Narrative
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &narrative); err != nil {
		return nil, fmt.Errorf("GeminiNarrator: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return &narrative, nil
}

type reportFacts struct {
	Period           string          `json:"period"`
	Currency         string          `json:"currency"`
	Income           string          `json:"income"`
	Expenses         string          `json:"expenses"`
	Net              string          `json:"net"`
	SavingsRatePct   string          `json:"savings_rate_pct"`
	TransactionCount int             `json:"transaction_count"`
	TopCategories    []categoryFacts `json:"top_categories"`
}

type categoryFacts struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func factsFor(r *report.Report) reportFacts {
	f := reportFacts{
		Period:           r.Period.Label(),
		Currency:         r.Currency,
		Income:           r.Figures.Income.StringFixed(2),
		Expenses:         r.Figures.Expenses.StringFixed(2),
		Net:              r.Figures.Net.StringFixed(2),
		SavingsRatePct:   r.Figures.SavingsRate.StringFixed(1),
		TransactionCount: r.Figures.TransactionCount,
	}
	for _, c := range r.TopCategories {
		f.TopCategories = append(f.TopCategories, categoryFacts{Category: c.Category, Total: c.Total.StringFixed(2)})
	}
	return f
}

// cleanModelJSON strips Markdown fences and text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

var _ Narrator = (*GeminiNarrator)(nil)
