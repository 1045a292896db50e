package handlers

import (
	"net/http"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	sum, err := h.dashboard.Summarize(r.Context(), userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not build dashboard", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}
