// Package pdf renders order statements to PDF documents.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"medorder/backend/internal/domain"
)

var ErrEmptyPDF = errors.New("Generated PDF is empty or invalid.")

// Renderer turns statement data into a PDF blob.
type Renderer interface {
	Render(ctx context.Context, data *domain.OrderStatementData) ([]byte, error)
}

// Generate renders data and rejects output that is not a PDF.
func Generate(ctx context.Context, r Renderer, data *domain.OrderStatementData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := r.Render(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("generate statement pdf: %w", err)
	}
	if len(blob) == 0 || !bytes.HasPrefix(blob, []byte("%PDF")) {
		return nil, ErrEmptyPDF
	}
	return blob, nil
}

type StatementRenderer struct {
	printer *message.Printer
	now     func() time.Time
}

func NewStatementRenderer() *StatementRenderer {
	return &StatementRenderer{
		printer: message.NewPrinter(language.AmericanEnglish),
		now:     time.Now,
	}
}

func (r *StatementRenderer) money(v float64) string {
	return r.printer.Sprintf("$%.2f", v)
}

func (r *StatementRenderer) Render(ctx context.Context, data *domain.OrderStatementData) ([]byte, error) {
	if data == nil || data.Summary == nil {
		return nil, errors.New("statement data is incomplete")
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Order Statement", true)
	doc.SetCreator(data.CompanyInfo.Name, true)
	doc.SetCreationDate(r.now())
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	r.header(doc, data)
	r.customer(doc, data)
	r.summary(doc, data.Summary)
	if err := r.orders(ctx, doc, data.Orders); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *StatementRenderer) header(doc *fpdf.Fpdf, data *domain.OrderStatementData) {
	c := data.CompanyInfo
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 8, fallback(c.Name, "Order Statement"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, line := range []string{c.Address, c.Phone, c.Email, c.Website} {
		if strings.TrimSpace(line) != "" {
			doc.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 7, "Order Statement", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	period := fmt.Sprintf("Period: %s to %s", data.StartDate.Format(time.DateOnly), data.EndDate.Format(time.DateOnly))
	doc.CellFormat(0, 6, period, "", 1, "L", false, 0, "")
	doc.Ln(2)
}

func (r *StatementRenderer) customer(doc *fpdf.Fpdf, data *domain.OrderStatementData) {
	u := data.UserInfo
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, line := range []string{u.CompanyName, name, u.Address, u.Email, u.Phone} {
		if line != "" {
			doc.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(4)
}

func (r *StatementRenderer) summary(doc *fpdf.Fpdf, s *domain.OrderStatementSummary) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, "Summary", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Total orders", fmt.Sprintf("%d", s.TotalOrders)},
		{"Total amount", r.money(s.TotalAmount)},
		{"Total paid", r.money(s.TotalPaid)},
		{"Total pending", r.money(s.TotalPending)},
	}
	for _, row := range rows {
		doc.CellFormat(50, 6, row[0], "", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	doc.Ln(4)
}

var orderColumns = []struct {
	title string
	width float64
	align string
}{
	{"Order #", 32, "L"},
	{"Date", 24, "L"},
	{"Status", 26, "L"},
	{"Payment", 22, "L"},
	{"Amount", 26, "R"},
	{"Paid", 25, "R"},
	{"Pending", 25, "R"},
}

func (r *StatementRenderer) orders(ctx context.Context, doc *fpdf.Fpdf, records []domain.OrderStatementRecord) error {
	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	for _, col := range orderColumns {
		doc.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	if len(records) == 0 {
		doc.CellFormat(0, 7, "No orders in this period.", "1", 1, "C", false, 0, "")
		return nil
	}
	for i, rec := range records {
		if i%50 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cells := []string{
			rec.OrderNumber,
			rec.OrderDate.Format(time.DateOnly),
			string(rec.OrderStatus),
			string(rec.PaymentStatus),
			r.money(rec.OrderAmount),
			r.money(rec.PaidAmount),
			r.money(rec.PendingAmount),
		}
		for j, col := range orderColumns {
			doc.CellFormat(col.width, 6, cells[j], "1", 0, col.align, false, 0, "")
		}
		doc.Ln(-1)
	}
	return doc.Error()
}

func fallback(v string, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
