package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/services"
	"github.com/tarikbs/repairdesk/validation"
)

type CompanyHandler struct {
	db       *gorm.DB
	invoices *services.InvoiceService
}

func NewCompanyHandler(db *gorm.DB, invoices *services.InvoiceService) *CompanyHandler {
	return &CompanyHandler{db: db, invoices: invoices}
}

type companyRequest struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	LogoURL    string  `json:"logo_url"`
	VATEnabled bool    `json:"vat_enabled"`
	VATRate    float64 `json:"vat_rate"`
	VATNumber  string  `json:"vat_number"`
}

// Show returns the user's company profile, or an empty one before first save.
func (h *CompanyHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var company models.Company
	err := h.db.WithContext(r.Context()).Where("user_id = ?", userID).Take(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		company.UserID = userID
	} else if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load company", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

// Upsert saves the one-per-user company profile. When the VAT configuration
// changes, every stored invoice is recomputed so totals never go stale.
func (h *CompanyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req companyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.RangeFloat("vat_rate", req.VATRate, 0, 100, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation failed", v)
		return
	}

	var company models.Company
	err := h.db.WithContext(r.Context()).Where("user_id = ?", userID).Take(&company).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load company", nil)
		return
	}
	vatChanged := company.VATEnabled != req.VATEnabled || company.VATRate != req.VATRate

	company.UserID = userID
	company.Name = req.Name
	company.Address = req.Address
	company.Phone = req.Phone
	company.Email = req.Email
	company.LogoURL = req.LogoURL
	company.VATEnabled = req.VATEnabled
	company.VATRate = req.VATRate
	company.VATNumber = req.VATNumber

	if err := h.db.WithContext(r.Context()).Save(&company).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not save company", nil)
		return
	}

	if vatChanged {
		if err := h.invoices.RefreshForUser(r.Context(), userID); err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "company saved but invoices not recomputed", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, company)
}
