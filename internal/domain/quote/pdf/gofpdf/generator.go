package gofpdf

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"crm-billing/go_backend/internal/domain/quote"
)

// Generator renders quotes to A4 PDFs. With FontDir set, DejaVuSans.ttf and
// DejaVuSans-Bold.ttf are loaded from it for full UTF-8 output; otherwise the
// core Helvetica font is used with a cp1252 translation.
type Generator struct {
	FontDir string
	Now     func() time.Time
}

func New(fontDir string) *Generator { return &Generator{FontDir: fontDir, Now: time.Now} }

// DefaultFontDir is where a deployment drops the DejaVu fonts when
// PDF_FONT_DIR is not set.
const DefaultFontDir = "internal/domain/quote/pdf/gofpdf/fonts"

// ResolveFontDir returns dir, or DefaultFontDir when dir is empty, if both
// DejaVu faces exist there. It returns "" when they do not, which selects the
// Helvetica fallback.
func ResolveFontDir(dir string) string {
	if dir == "" {
		dir = DefaultFontDir
	}
	for _, name := range []string{"DejaVuSans.ttf", "DejaVuSans-Bold.ttf"} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || fi.IsDir() {
			return ""
		}
	}
	return dir
}

// UnicodeFonts reports whether output can carry characters outside cp1252,
// such as Turkish ş, ğ and ı.
func (g *Generator) UnicodeFonts() bool { return g.FontDir != "" }

func (g *Generator) Generate(q quote.Quote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quote "+q.Number, true)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if g.FontDir != "" {
		regularFont := filepath.Join(g.FontDir, "DejaVuSans.ttf")
		boldFont := filepath.Join(g.FontDir, "DejaVuSans-Bold.ttf")
		slog.Debug("quote pdf: load fonts", "regular", regularFont, "bold", boldFont)
		pdf.AddUTF8Font("DejaVu", "", regularFont)
		pdf.AddUTF8Font("DejaVu", "B", boldFont)
		family = "DejaVu"
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.Cell(0, 10, tr("Quote"))
	pdf.Ln(8)

	pdf.SetFont(family, "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("No. %s, issued %s", q.Number, formatDate(q.IssueDate))))
	pdf.Ln(6)
	if !q.ExpiryDate.IsZero() {
		pdf.Cell(0, 6, tr("Valid until "+formatDate(q.ExpiryDate)))
		pdf.Ln(6)
	}

	customer := q.CustomerName
	if customer == "" {
		customer = q.CustomerRef
	}
	if customer != "" {
		pdf.Cell(0, 6, tr("Customer: "+customer))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont(family, "B", 11)
	pdf.Cell(100, 7, tr("Description"))
	pdf.CellFormat(25, 7, tr("Qty"), "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, tr("Unit price"), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, tr("Amount"), "", 0, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont(family, "", 10)
	for _, it := range q.Items {
		pdf.Cell(100, 6, tr(trim(it.Description, 55)))
		pdf.CellFormat(25, 6, it.Quantity.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, quote.FormatMoney(it.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, quote.FormatMoney(it.Amount), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont(family, "", 11)
	totalRow(pdf, tr("Subtotal"), quote.FormatMoney(q.Subtotal))
	totalRow(pdf, tr(fmt.Sprintf("Tax (%s%%)", q.TaxRatePercent.String())), quote.FormatMoney(q.TaxAmount))
	pdf.SetFont(family, "B", 11)
	totalRow(pdf, tr("Total"), quote.FormatMoney(q.Total))

	if q.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont(family, "", 9)
		pdf.MultiCell(0, 5, tr(q.Notes), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont(family, "", 8)
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	pdf.Cell(0, 5, "Generated: "+now().UTC().Format(time.RFC3339))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		slog.Error("quote pdf: output failed", "quote", q.Number, "err", err)
		return nil, err
	}
	return buf.Bytes(), nil
}

func totalRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(155, 7, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, value, "", 0, "R", false, 0, "")
	pdf.Ln(6)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(quote.DateLayout)
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
