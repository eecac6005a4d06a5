package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer converts HTML to PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error)
}

// PDFExporter renders the delivery report template and converts it to PDF.
type PDFExporter struct {
	renderer  Renderer
	templates *template.Template
	now       func() time.Time
}

type reportView struct {
	Report      delivery.Report
	GeneratedAt string
}

// NewPDFExporter parses the embedded templates.
func NewPDFExporter(renderer Renderer) (*PDFExporter, error) {
	tpl, err := template.New("report.html").Funcs(template.FuncMap{
		"money": delivery.FormatMoney,
	}).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &PDFExporter{renderer: renderer, templates: tpl, now: time.Now}, nil
}

// RenderReport returns the PDF bytes for the report.
func (p *PDFExporter) RenderReport(ctx context.Context, r delivery.Report) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, report.ErrNotConfigured
	}
	html, err := p.ReportHTML(r)
	if err != nil {
		return nil, err
	}
	opts := report.Letter
	opts.Landscape = true
	return p.renderer.RenderHTML(ctx, html, opts)
}

// ReportHTML renders the report template.
func (p *PDFExporter) ReportHTML(r delivery.Report) (string, error) {
	var buf bytes.Buffer
	view := reportView{Report: r, GeneratedAt: p.now().Format("January 2, 2006 at 3:04 PM")}
	if err := p.templates.ExecuteTemplate(&buf, "report.html", view); err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}
