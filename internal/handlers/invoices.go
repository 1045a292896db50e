package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/pdf"
	"github.com/tarikbs/repairdesk/internal/services"
)

type InvoiceHandler struct {
	db       *gorm.DB
	invoices *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{db: db, invoices: invoices}
}

type createInvoiceRequest struct {
	JobID    uuid.UUID              `json:"job_id"`
	Document models.InvoiceDocument `json:"document"`
}

func invoiceID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	return uint(id), err
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	invoices, err := h.invoices.List(r.Context(), userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := invoiceID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	inv, err := h.invoices.Get(r.Context(), userID, id)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var req createInvoiceRequest
	if err := httpx.Decode(r, &req); err != nil || req.JobID == uuid.Nil {
		httpx.JSONError(w, http.StatusBadRequest, "job_id required", nil)
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	inv, err := h.invoices.CreateForJob(r.Context(), userID, user.NumberPrefix(), req.JobID, req.Document)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not create invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := invoiceID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	var doc models.InvoiceDocument
	if err := httpx.Decode(r, &doc); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}

	inv, err := h.invoices.Update(r.Context(), userID, id, doc)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not update invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := invoiceID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	err = h.invoices.Delete(r.Context(), userID, id)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not delete invoice", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PDF streams the invoice as a document. ?format=mobile selects the narrow
// slip layout, anything else renders A4.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := invoiceID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid invoice id", nil)
		return
	}
	inv, err := h.invoices.Get(r.Context(), userID, id)
	if errors.Is(err, services.ErrInvoiceNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "invoice not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load invoice", nil)
		return
	}

	var company models.Company
	var companyPtr *models.Company
	if err := h.db.WithContext(r.Context()).Where("user_id = ?", userID).Take(&company).Error; err == nil {
		companyPtr = &company
	}

	form := pdf.FormatA4
	if r.URL.Query().Get("format") == string(pdf.FormatMobile) {
		form = pdf.FormatMobile
	}
	data, err := pdf.Invoice(inv, companyPtr, form)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not render pdf", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", inv.InvoiceNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
