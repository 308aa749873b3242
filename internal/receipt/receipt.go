// Package receipt renders an order as an 80mm wide PDF receipt.
package receipt

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cupoftea4/pos-mysql/internal/config"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

const (
	pageWidth  = 80.0 // mm
	margin     = 4.0
	lineHeight = 5.0
	// header, totals and footer, without the item lines
	baseHeight = 95.0
)

type Renderer struct {
	cfg     config.ReceiptSection
	printer *message.Printer
	title   cases.Caser
	loc     *time.Location
}

func NewRenderer(cfg config.ReceiptSection, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		cfg:     cfg,
		printer: message.NewPrinter(language.English),
		title:   cases.Title(language.English),
		loc:     loc,
	}
}

// FileName is the download name of the receipt of an order.
func FileName(orderID int64) string {
	return fmt.Sprintf("receipt_order_%d.pdf", orderID)
}

// Render writes the receipt of o as PDF to w.
func (r *Renderer) Render(w io.Writer, o model.Order) error {
	height := baseHeight + lineHeight*2*float64(len(o.Lines))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(fmt.Sprintf("Receipt #%d", o.OrderID), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := pageWidth - 2*margin

	if r.cfg.LogoPath != "" {
		pdf.ImageOptions(r.cfg.LogoPath, (pageWidth-20)/2, pdf.GetY(), 20, 0, true, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 6, tr(r.cfg.StoreName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.MultiCell(width, 4, tr(r.cfg.StoreAddress), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(width, 9, tr(r.money(o.TotalPrice)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width, 4, fmt.Sprintf("Order #%d", o.OrderID), "", 1, "C", false, 0, "")
	r.rule(pdf, width)

	pdf.SetFont("Helvetica", "", 9)
	for i, l := range o.Lines {
		pdf.CellFormat(width, lineHeight, tr(fmt.Sprintf("(%02d) %s", i+1, l.Name)), "", 1, "L", false, 0, "")
		qty := fmt.Sprintf("     %d x %s", l.Quantity, r.money(l.Price))
		pdf.CellFormat(width/2, lineHeight, tr(qty), "", 0, "L", false, 0, "")
		pdf.CellFormat(width/2, lineHeight, tr(r.money(l.Subtotal())), "", 1, "R", false, 0, "")
	}
	r.rule(pdf, width)

	pdf.SetFont("Helvetica", "B", 10)
	r.row(pdf, width, tr, "Total", r.money(o.TotalPrice))
	pdf.SetFont("Helvetica", "", 9)
	r.row(pdf, width, tr, "Payment", paymentLabel(o.PaymentMethod))
	r.row(pdf, width, tr, "Sell mode", r.title.String(string(o.SellMode)))
	if o.CreatedByEmail != "" {
		r.row(pdf, width, tr, "Cashier", o.CreatedByEmail)
	}
	r.rule(pdf, width)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(width, 4, tr(r.cfg.ThanksLine), "", "C", false)
	pdf.CellFormat(width, 4, o.CreatedAt.In(r.loc).Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt %d: %w", o.OrderID, err)
	}
	return nil
}

func (r *Renderer) row(pdf *fpdf.Fpdf, width float64, tr func(string) string, label, value string) {
	pdf.CellFormat(width/2, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.CellFormat(width/2, lineHeight, tr(value), "", 1, "R", false, 0, "")
}

func (r *Renderer) rule(pdf *fpdf.Fpdf, width float64) {
	pdf.Ln(1)
	y := pdf.GetY()
	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Line(margin, y, margin+width, y)
	pdf.SetDashPattern([]float64{}, 0)
	pdf.Ln(2)
}

// money formats an amount with thousands separators and the currency
// suffix, e.g. "12,500 Ks".
func (r *Renderer) money(d decimal.Decimal) string {
	var s string
	if d.Equal(d.Truncate(0)) {
		s = r.printer.Sprintf("%d", d.IntPart())
	} else {
		s = r.printer.Sprintf("%.2f", d.InexactFloat64())
	}
	return strings.TrimSpace(s + " " + r.cfg.Currency)
}

// paymentLabel prints an unset payment method as Kpay, the default
// register payment.
func paymentLabel(m model.PaymentMethod) string {
	if m == "" {
		return model.PayKPay.Label()
	}
	return m.Label()
}
