package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/i18n"
	"github.com/tarikbs/repairdesk/internal/jobs"
	"github.com/tarikbs/repairdesk/internal/models"
)

// JobHandler exposes job cards over the JSON API. Reads go through the
// per-user fetch session so list views stay live; writes go through the
// action service.
type JobHandler struct {
	db       *gorm.DB
	actions  *jobs.ActionService
	sessions *jobs.Sessions
}

func NewJobHandler(db *gorm.DB, actions *jobs.ActionService, sessions *jobs.Sessions) *JobHandler {
	return &JobHandler{db: db, actions: actions, sessions: sessions}
}

// jobView decorates a card with localized status presentation.
type jobView struct {
	jobs.Card
	StatusLabel string `json:"status_label"`
	StatusColor string `json:"status_color"`
	StatusIcon  string `json:"status_icon"`
}

func toJobView(card jobs.Card, lang string) jobView {
	return jobView{
		Card:        card,
		StatusLabel: jobs.StatusLabel(card.Details.Status, lang),
		StatusColor: jobs.StatusColor(card.Details.Status),
		StatusIcon:  jobs.StatusIcon(card.Details.Status),
	}
}

func (h *JobHandler) userKey(r *http.Request, userID uint) (string, bool) {
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		return "", false
	}
	return user.NumberPrefix(), true
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	lang := i18n.Lang(r.Context())

	cards, err := h.sessions.For(userID).FetchAll(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load jobs", nil)
		return
	}
	views := make([]jobView, 0, len(cards))
	for _, card := range cards {
		views = append(views, toJobView(card, lang))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid job id", nil)
		return
	}

	card, err := h.sessions.For(userID).FetchOne(r.Context(), id)
	if errors.Is(err, jobs.ErrSuperseded) {
		// A newer request took over; tell the client nothing went wrong.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if errors.Is(err, jobs.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, i18n.T(i18n.Lang(r.Context()), "not_found_or_forbidden"), nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not load job", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toJobView(*card, i18n.Lang(r.Context())))
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in jobs.Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	userKey, ok := h.userKey(r, userID)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	card, err := h.actions.Create(r.Context(), userID, userKey, in)
	var verr *jobs.ValidationError
	if errors.As(err, &verr) {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation failed", localizedViolations(verr, i18n.Lang(r.Context())))
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not create job", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, toJobView(*card, i18n.Lang(r.Context())))
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid job id", nil)
		return
	}
	var in jobs.Input
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}

	card, err := h.actions.Update(r.Context(), userID, id, in)
	var verr *jobs.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation failed", localizedViolations(verr, i18n.Lang(r.Context())))
	case errors.Is(err, jobs.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, i18n.T(i18n.Lang(r.Context()), "not_found_or_forbidden"), nil)
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "could not update job", nil)
	default:
		httpx.JSON(w, http.StatusOK, toJobView(*card, i18n.Lang(r.Context())))
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *JobHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid job id", nil)
		return
	}
	var req statusRequest
	if err := httpx.Decode(r, &req); err != nil || req.Status == "" {
		httpx.JSONError(w, http.StatusBadRequest, "status required", nil)
		return
	}

	card, err := h.actions.SetStatus(r.Context(), userID, id, req.Status)
	if errors.Is(err, jobs.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, i18n.T(i18n.Lang(r.Context()), "not_found_or_forbidden"), nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not update status", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toJobView(*card, i18n.Lang(r.Context())))
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid job id", nil)
		return
	}

	err = h.actions.Delete(r.Context(), userID, id)
	if errors.Is(err, jobs.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, i18n.T(i18n.Lang(r.Context()), "not_found_or_forbidden"), nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "could not delete job", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func localizedViolations(verr *jobs.ValidationError, lang string) map[string]string {
	out := make(map[string]string, len(verr.Violations))
	for field, code := range verr.Violations {
		out[field] = i18n.T(lang, code)
	}
	return out
}
