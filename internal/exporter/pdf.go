// Package exporter renders reports to PDF documents.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/moneyfmt"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/go-pdf/fpdf"
)

// ContentTypePDF is the MIME type of rendered documents.
const ContentTypePDF = "application/pdf"

// ErrMalformedReport is returned for reports that cannot be rendered.
var ErrMalformedReport = errors.New("malformed report")

const (
	fontFamily  = "Helvetica"
	pageMargin  = 15.0
	lineHeight  = 6.0
	labelWidth  = 70.0
	amountWidth = 60.0
)

// PDFExporter implements report.Exporter with fpdf core fonts.
type PDFExporter struct {
	author string
}

// NewPDFExporter creates an exporter that stamps author into the PDF metadata.
func NewPDFExporter(author string) *PDFExporter {
	return &PDFExporter{author: author}
}

// Export renders r as an A4 PDF.
func (e *PDFExporter) Export(ctx context.Context, r *report.Report) (*report.Document, error) {
	if err := checkReport(r); err != nil {
		return nil, fmt.Errorf("Export: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 for the core fonts

	pdf.SetTitle(r.Title, true)
	pdf.SetAuthor(e.author, true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(contentWidth, 9, tr(r.Title), "", "L", false)
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(contentWidth, lineHeight, tr(fmt.Sprintf("Destinatário: %s", r.Recipient)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, lineHeight, tr(fmt.Sprintf("Período: %s a %s",
		r.Period.Start.Format("02/01/2006"), r.Period.End.Format("02/01/2006"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	heading(pdf, tr, "Resumo financeiro")
	fig := r.Figures
	row(pdf, tr, "Receitas", moneyfmt.Format(fig.Income, r.Currency))
	row(pdf, tr, "Despesas", moneyfmt.Format(fig.Expenses, r.Currency))
	row(pdf, tr, "Economia", moneyfmt.Format(fig.Net, r.Currency))
	row(pdf, tr, "Taxa de economia", moneyfmt.Percent(fig.SavingsRate))
	row(pdf, tr, "Transações", fmt.Sprintf("%d", fig.TransactionCount))
	pdf.Ln(4)

	if len(r.TopCategories) > 0 {
		heading(pdf, tr, "Principais categorias de gastos")
		for i, c := range r.TopCategories {
			row(pdf, tr, fmt.Sprintf("%d. %s", i+1, c.Category), moneyfmt.Format(c.Total, r.Currency))
		}
		pdf.Ln(4)
	}

	heading(pdf, tr, "Análise do mês")
	pdf.SetFont(fontFamily, "", 11)
	pdf.MultiCell(contentWidth, lineHeight, tr(r.Summary), "", "J", false)
	pdf.Ln(4)

	if len(r.Recommendations) > 0 {
		heading(pdf, tr, "Recomendações")
		pdf.SetFont(fontFamily, "", 11)
		for _, rec := range r.Recommendations {
			pdf.MultiCell(contentWidth, lineHeight, tr("- "+rec), "", "L", false)
		}
	}

	pdf.SetY(-pageMargin - lineHeight)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.CellFormat(contentWidth, lineHeight, tr("Relatório gerado em "+r.GeneratedAt.Format("02/01/2006 15:04")), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("Export: render pdf: %w", err)
	}

	doc := &report.Document{
		Filename:    Filename(r.Period),
		ContentType: ContentTypePDF,
		Title:       r.Title,
		Data:        buf.Bytes(),
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("recipient", string(r.Recipient)).
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Msg("Rendered report")

	return doc, nil
}

// Filename returns the attachment name for a period, e.g. "relatorio-2024-01.pdf".
func Filename(p report.Period) string {
	return "relatorio-" + p.Label() + ".pdf"
}

func checkReport(r *report.Report) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil report", ErrMalformedReport)
	case strings.TrimSpace(r.Title) == "":
		return fmt.Errorf("%w: missing title", ErrMalformedReport)
	case strings.TrimSpace(r.Summary) == "":
		return fmt.Errorf("%w: missing summary", ErrMalformedReport)
	case r.Period.Start.IsZero() || r.Period.End.IsZero():
		return fmt.Errorf("%w: missing period", ErrMalformedReport)
	}
	return nil
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 8, tr(text), "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont(fontFamily, "", 11)
	pdf.CellFormat(labelWidth, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(amountWidth, lineHeight, tr(value), "", 1, "R", false, 0, "")
}

var _ report.Exporter = (*PDFExporter)(nil)
