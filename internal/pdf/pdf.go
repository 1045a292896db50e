// Package pdf renders invoices and job cards as PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/tarikbs/repairdesk/internal/models"
)

// Format selects the page geometry of a document.
type Format string

const (
	// FormatA4 is the standard printable page.
	FormatA4 Format = "a4"
	// FormatMobile is a narrow 80x200mm slip sized for phone screens and
	// receipt printers.
	FormatMobile Format = "mobile"
)

func newDoc(form Format) *gofpdf.Fpdf {
	if form == FormatMobile {
		return gofpdf.NewCustom(&gofpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "mm",
			Size:           gofpdf.SizeType{Wd: 80, Ht: 200},
		})
	}
	return gofpdf.New("P", "mm", "A4", "")
}

func bodyWidth(doc *gofpdf.Fpdf) float64 {
	w, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	return w - left - right
}

func companyHeader(doc *gofpdf.Fpdf, tr func(string) string, company *models.Company) {
	doc.SetFont("Helvetica", "B", 14)
	name := "Repair Shop"
	if company != nil && company.Name != "" {
		name = company.Name
	}
	doc.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	if company != nil {
		for _, line := range []string{company.Address, company.Phone, company.Email} {
			if line != "" {
				doc.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
			}
		}
		if company.VATNumber != "" {
			doc.CellFormat(0, 5, tr("VAT: "+company.VATNumber), "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(4)
}

// Invoice renders an invoice document.
func Invoice(inv *models.Invoice, company *models.Company, form Format) ([]byte, error) {
	doc := newDoc(form)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	companyHeader(doc, tr, company)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, tr("Invoice "+inv.InvoiceNumber), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, "Issued: "+inv.Data.IssueDate.Format("2006-01-02"), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, "Due: "+inv.Data.DueDate.Format("2006-01-02"), "", 1, "L", false, 0, "")
	if inv.Job != nil {
		doc.CellFormat(0, 5, tr("Job "+inv.Job.JobCardNumber+" / "+inv.Job.CustomerName), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	width := bodyWidth(doc)
	descW := width * 0.5
	numW := width * 0.5 / 3

	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(descW, 6, "Description", "1", 0, "L", true, 0, "")
	doc.CellFormat(numW, 6, "Qty", "1", 0, "R", true, 0, "")
	doc.CellFormat(numW, 6, "Unit", "1", 0, "R", true, 0, "")
	doc.CellFormat(numW, 6, "Amount", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for _, item := range inv.Data.LineItems {
		doc.CellFormat(descW, 6, tr(item.Description), "1", 0, "L", false, 0, "")
		doc.CellFormat(numW, 6, fmt.Sprintf("%g", item.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(numW, 6, fmt.Sprintf("%.2f", item.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(numW, 6, fmt.Sprintf("%.2f", item.Amount), "1", 1, "R", false, 0, "")
	}

	doc.Ln(2)
	label := descW + numW
	doc.CellFormat(label, 6, "Subtotal", "", 0, "R", false, 0, "")
	doc.CellFormat(numW*2, 6, fmt.Sprintf("%.2f", inv.Data.Subtotal), "", 1, "R", false, 0, "")
	for _, tax := range inv.Data.Taxes {
		doc.CellFormat(label, 6, tr(fmt.Sprintf("%s (%.2f%%)", tax.Name, tax.Rate)), "", 0, "R", false, 0, "")
		doc.CellFormat(numW*2, 6, fmt.Sprintf("%.2f", tax.Amount), "", 1, "R", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(label, 7, "Total", "", 0, "R", false, 0, "")
	doc.CellFormat(numW*2, 7, fmt.Sprintf("%.2f", inv.Data.Total), "", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 8)
	if inv.Data.Notes != "" {
		doc.Ln(4)
		doc.MultiCell(0, 4, tr("Notes: "+inv.Data.Notes), "", "L", false)
	}
	if inv.Data.Terms != "" {
		doc.Ln(2)
		doc.MultiCell(0, 4, tr("Terms: "+inv.Data.Terms), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// JobCard renders a printable job card for the workshop or the customer.
func JobCard(job *models.Job, company *models.Company, form Format) ([]byte, error) {
	doc := newDoc(form)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	companyHeader(doc, tr, company)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, tr("Job Card "+job.JobCardNumber), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, "Created: "+job.CreatedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, tr("Status: "+string(job.Status)), "", 1, "L", false, 0, "")
	doc.Ln(3)

	section := func(title string, rows [][2]string) {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		for _, row := range rows {
			if row[1] == "" {
				continue
			}
			doc.CellFormat(0, 5, tr(row[0]+": "+row[1]), "", 1, "L", false, 0, "")
		}
		doc.Ln(2)
	}

	email := ""
	if job.CustomerEmail != nil {
		email = *job.CustomerEmail
	}
	section("Customer", [][2]string{
		{"Name", job.CustomerName},
		{"Phone", job.CustomerPhone},
		{"Email", email},
	})
	section("Device", [][2]string{
		{"Device", job.DeviceName},
		{"Model", job.DeviceModel},
		{"Condition", job.DeviceCondition},
	})

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 6, "Reported problem", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.MultiCell(0, 5, tr(job.Problem), "", "L", false)
	if job.HandlingFees > 0 {
		doc.Ln(2)
		doc.CellFormat(0, 5, fmt.Sprintf("Handling fees: %.2f", job.HandlingFees), "", 1, "L", false, 0, "")
	}

	doc.SetFont("Helvetica", "I", 7)
	doc.Ln(6)
	doc.CellFormat(0, 4, "Printed "+time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render job card pdf: %w", err)
	}
	return buf.Bytes(), nil
}
