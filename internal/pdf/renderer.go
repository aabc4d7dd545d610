// Package pdf renders invoices to PDF documents.
package pdf

import (
	"bytes"
	"fmt"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/models"

	"github.com/jung-kurt/gofpdf/v2"
)

// InvoiceRenderer produces invoice PDFs.
type InvoiceRenderer struct{}

func NewInvoiceRenderer() *InvoiceRenderer {
	return &InvoiceRenderer{}
}

// Render generates the PDF bytes for one invoice.
func (r *InvoiceRenderer) Render(inv *models.InvoiceWithClient) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(180, 12, "INVOICE", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(180, 6, inv.InvoiceNumber, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Parties
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 6, "From", "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(90, 6, inv.IssuerName, "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, inv.ClientName, "", 1, "L", false, 0, "")
	pdf.CellFormat(90, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, inv.ClientEmail, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Dates and status
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 7, fmt.Sprintf("Issue date: %s", inv.IssueDate.Format("02 Jan 2006")), "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 7, fmt.Sprintf("Due date: %s", inv.DueDate.Format("02 Jan 2006")), "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 7, fmt.Sprintf("Status: %s", inv.Status), "1", 1, "L", true, 0, "")
	pdf.Ln(6)

	// Line item table header
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(85, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Amount", "1", 1, "R", true, 0, "")

	// Line item rows
	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		desc := item.Description
		if len(desc) > 48 {
			desc = desc[:45] + "..."
		}
		pdf.CellFormat(85, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, item.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, item.UnitPrice.Display(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, item.Amount.Display(), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	// Totals block, right-aligned
	totals := inv.Totals
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(110, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, totals.Subtotal.Display(), "", 1, "R", false, 0, "")
	if !totals.TaxAmount.IsZero() {
		pdf.CellFormat(110, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, "Tax", "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, totals.TaxAmount.Display(), "", 1, "R", false, 0, "")
	}
	if !totals.DiscountAmount.IsZero() {
		pdf.CellFormat(110, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, "Discount", "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, "-"+totals.DiscountAmount.Display(), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(110, 8, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, totals.Total.Display(), "T", 1, "R", false, 0, "")

	if inv.Status == billing.StatusPaid {
		pdf.Ln(4)
		pdf.SetFillColor(200, 255, 200)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(180, 9, "PAID", "1", 1, "C", true, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(180, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(180, 5, inv.Notes, "", "L", false)
	}
	if inv.Terms != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(180, 6, "Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(180, 5, inv.Terms, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
