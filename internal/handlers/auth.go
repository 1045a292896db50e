package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/internal/db"
	"github.com/tarikbs/repairdesk/internal/jobs"
	"github.com/tarikbs/repairdesk/internal/models"
)

type AuthHandler struct {
	db       *gorm.DB
	sessions *jobs.Sessions
	validate *validator.Validate
}

func NewAuthHandler(gdb *gorm.DB, sessions *jobs.Sessions) *AuthHandler {
	return &AuthHandler{db: gdb, sessions: sessions, validate: validator.New()}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	PublicID string `json:"public_id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, PublicID: u.PublicID.String(), Email: u.Email, Name: u.Name}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation failed", validationDetails(err))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
	}
	if profileID, err := db.DefaultProfileID(h.db); err == nil {
		user.ProfileID = &profileID
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email already registered", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, toUserResponse(&user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation failed", validationDetails(err))
		return
	}

	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", req.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) ||
		(err == nil && bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid email or password", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, toUserResponse(&user))
}

// Logout clears the cookie and tears down the user's fetch session so the
// next sign-in starts with a clean watcher.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.sessions.Close(userID)
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(&user))
}

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
