package notifier

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/yuin/goldmark"
)

var bodyTemplate = template.Must(template.New("body").Parse(`Olá,

Seu relatório financeiro **{{.Title}}** está pronto.

O documento segue em anexo como *{{.Filename}}*.

Até o próximo mês!
`))

// body renders the message as Markdown (the plain-text part) and as HTML
// (the alternative part). The archive location stays internal.
func body(doc *report.Document) (plain, html string, err error) {
	var md bytes.Buffer
	if err := bodyTemplate.Execute(&md, doc); err != nil {
		return "", "", fmt.Errorf("body: execute template: %w", err)
	}

	var out bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &out); err != nil {
		return "", "", fmt.Errorf("body: convert markdown: %w", err)
	}
	return md.String(), out.String(), nil
}
