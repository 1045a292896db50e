package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/sequence"
)

// ErrInvoiceNotFound is returned when an invoice does not exist or belongs
// to another user.
var ErrInvoiceNotFound = errors.New("invoice not found or unauthorized")

const vatTaxName = "VAT"

type InvoiceService struct {
	db    *gorm.DB
	alloc sequence.Allocator
	log   *logrus.Logger
}

func NewInvoiceService(db *gorm.DB, alloc sequence.Allocator, log *logrus.Logger) *InvoiceService {
	return &InvoiceService{db: db, alloc: alloc, log: log}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ComputeTotals rebuilds all derived figures of a document in place. Line
// amounts come from quantity and unit price, never from input. Tax entries
// are recomputed from their rates; the VAT entry exists only while the
// owning company has VAT enabled, at the company's current rate.
func (s *InvoiceService) ComputeTotals(doc *models.InvoiceDocument, company *models.Company) {
	var subtotal float64
	for i := range doc.LineItems {
		doc.LineItems[i].Amount = round2(doc.LineItems[i].Quantity * doc.LineItems[i].UnitPrice)
		subtotal += doc.LineItems[i].Amount
	}
	doc.Subtotal = round2(subtotal)

	taxes := make([]models.TaxEntry, 0, len(doc.Taxes)+1)
	for _, tax := range doc.Taxes {
		if tax.Name == vatTaxName {
			continue
		}
		tax.Amount = round2(doc.Subtotal * tax.Rate / 100)
		taxes = append(taxes, tax)
	}
	if company != nil && company.VATEnabled {
		taxes = append(taxes, models.TaxEntry{
			Name:   vatTaxName,
			Rate:   company.VATRate,
			Amount: round2(doc.Subtotal * company.VATRate / 100),
		})
	}
	doc.Taxes = taxes

	var taxTotal float64
	for _, tax := range doc.Taxes {
		taxTotal += tax.Amount
	}
	doc.TaxTotal = round2(taxTotal)
	doc.Total = round2(doc.Subtotal + doc.TaxTotal)
}

// recalculate refreshes an invoice's document and flat columns against the
// owner's current company profile.
func (s *InvoiceService) recalculate(ctx context.Context, inv *models.Invoice) error {
	company, err := s.companyFor(ctx, inv.UserID)
	if err != nil {
		return err
	}
	s.ComputeTotals(&inv.Data, company)
	inv.BillAmount = inv.Data.Subtotal
	inv.Total = inv.Data.Total
	return nil
}

func (s *InvoiceService) companyFor(ctx context.Context, userID uint) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	return &company, nil
}

// CreateForJob issues a new invoice against a job the user owns. The
// invoice number is allocated from the user's sequence and carries the INV
// prefix. Dates default to issue-now, due in 30 days.
func (s *InvoiceService) CreateForJob(ctx context.Context, userID uint, userKey string, jobID uuid.UUID, doc models.InvoiceDocument) (*models.Invoice, error) {
	var job models.Job
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", jobID, userID).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	n, err := s.alloc.Next(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	if doc.Status == "" {
		doc.Status = models.InvoiceStatusDraft
	}
	if doc.IssueDate.IsZero() {
		doc.IssueDate = time.Now()
	}
	if doc.DueDate.IsZero() {
		doc.DueDate = doc.IssueDate.AddDate(0, 0, 30)
	}

	inv := models.Invoice{
		UserID:          userID,
		JobID:           jobID,
		InvoiceNumber:   sequence.FormatInvoiceNumber(userKey, n),
		BillDescription: job.Problem,
		Data:            doc,
	}
	if err := s.recalculate(ctx, &inv); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "invoice": inv.InvoiceNumber}).Info("invoice created")
	return &inv, nil
}

// Update replaces the document body of an owned invoice and recomputes its
// totals before saving.
func (s *InvoiceService) Update(ctx context.Context, userID, id uint, doc models.InvoiceDocument) (*models.Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	inv.Data = doc
	if err := s.recalculate(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(inv).Error; err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	return inv, nil
}

// RefreshForUser recomputes every invoice of a user. Called after the
// company's VAT configuration changes so no stored total goes stale.
func (s *InvoiceService) RefreshForUser(ctx context.Context, userID uint) error {
	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&invoices).Error; err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	company, err := s.companyFor(ctx, userID)
	if err != nil {
		return err
	}
	for i := range invoices {
		s.ComputeTotals(&invoices[i].Data, company)
		invoices[i].BillAmount = invoices[i].Data.Subtotal
		invoices[i].Total = invoices[i].Data.Total
		if err := s.db.WithContext(ctx).Save(&invoices[i]).Error; err != nil {
			return fmt.Errorf("refresh invoice %s: %w", invoices[i].InvoiceNumber, err)
		}
	}
	if len(invoices) > 0 {
		s.log.WithFields(logrus.Fields{"user_id": userID, "count": len(invoices)}).Info("invoices recomputed after company change")
	}
	return nil
}

// Get loads a single owned invoice with its job.
func (s *InvoiceService) Get(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Job").
		Where("id = ? AND user_id = ?", id, userID).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// List returns all invoices owned by userID, newest first.
func (s *InvoiceService) List(ctx context.Context, userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).Preload("Job").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Delete removes an owned invoice.
func (s *InvoiceService) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Invoice{})
	if res.Error != nil {
		return fmt.Errorf("delete invoice: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// GetRevenue sums the totals of paid invoices for a user.
func (s *InvoiceService) GetRevenue(ctx context.Context, userID uint) (float64, error) {
	invoices, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range invoices {
		if invoices[i].IsPaid() {
			total += invoices[i].Total
		}
	}
	return round2(total), nil
}
