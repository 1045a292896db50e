package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/jobs"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/sequence"
	"github.com/tarikbs/repairdesk/internal/services"
)

type testEnv struct {
	db       *gorm.DB
	actions  *jobs.ActionService
	sessions *jobs.Sessions
	invoices *services.InvoiceService
	feed     *feed.Feed
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.Permission{},
		&models.Company{}, &models.Job{}, &models.JobCounter{}, &models.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	f := feed.New()
	t.Cleanup(f.Close)
	alloc := sequence.NewAllocator(db)
	actions := jobs.NewActionService(db, alloc, f, log)
	sessions := jobs.NewSessions(actions, log)
	t.Cleanup(sessions.CloseAll)
	invoices := services.NewInvoiceService(db, alloc, log)

	return &testEnv{db: db, actions: actions, sessions: sessions, invoices: invoices, feed: f}
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x"}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

// asUser builds a request carrying an authenticated session context.
func asUser(t *testing.T, userID uint, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(auth.WithUserID(context.Background(), userID))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func newJobMux(h *JobHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs", h.List)
	mux.HandleFunc("POST /api/jobs", h.Create)
	mux.HandleFunc("GET /api/jobs/{id}", h.Get)
	mux.HandleFunc("PUT /api/jobs/{id}", h.Update)
	mux.HandleFunc("PATCH /api/jobs/{id}/status", h.SetStatus)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.Delete)
	return mux
}
