package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/gate"
	"github.com/tarikbs/repairdesk/internal/middleware"
	"github.com/tarikbs/repairdesk/internal/policy"
)

// newRouter registers all routes and wraps them in the shared middleware
// stack: request logging, language prefs, session parsing.
func newRouter(cfg *policy.RouterConfig, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", cfg.HealthHandler.Live)
	mux.HandleFunc("GET /healthz", cfg.HealthHandler.Ready)

	mux.HandleFunc("POST /signup", cfg.AuthHandler.Signup)
	mux.HandleFunc("POST /login", cfg.AuthHandler.Login)
	mux.Handle("POST /logout", auth.RequireAuth(http.HandlerFunc(cfg.AuthHandler.Logout)))
	mux.Handle("GET /api/me", auth.RequireAuth(http.HandlerFunc(cfg.AuthHandler.Me)))

	// protect = session required + profile permission on the resource.
	protect := func(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(cfg.AuthGate.RequirePermission(resource, action)(h))
	}

	mux.Handle("GET /api/jobs", protect("job", gate.ActionList, cfg.JobHandler.List))
	mux.Handle("POST /api/jobs", protect("job", gate.ActionCreate, cfg.JobHandler.Create))
	mux.Handle("GET /api/jobs/{id}", protect("job", gate.ActionView, cfg.JobHandler.Get))
	mux.Handle("PUT /api/jobs/{id}", protect("job", gate.ActionUpdate, cfg.JobHandler.Update))
	mux.Handle("PATCH /api/jobs/{id}/status", protect("job", gate.ActionUpdate, cfg.JobHandler.SetStatus))
	mux.Handle("DELETE /api/jobs/{id}", protect("job", gate.ActionDelete, cfg.JobHandler.Delete))

	mux.Handle("GET /api/company", protect("company", gate.ActionView, cfg.CompanyHandler.Show))
	mux.Handle("PUT /api/company", protect("company", gate.ActionUpdate, cfg.CompanyHandler.Upsert))

	mux.Handle("GET /api/invoices", protect("invoice", gate.ActionList, cfg.InvoiceHandler.List))
	mux.Handle("POST /api/invoices", protect("invoice", gate.ActionCreate, cfg.InvoiceHandler.Create))
	mux.Handle("GET /api/invoices/{id}", protect("invoice", gate.ActionView, cfg.InvoiceHandler.Get))
	mux.Handle("PUT /api/invoices/{id}", protect("invoice", gate.ActionUpdate, cfg.InvoiceHandler.Update))
	mux.Handle("DELETE /api/invoices/{id}", protect("invoice", gate.ActionDelete, cfg.InvoiceHandler.Delete))
	mux.Handle("GET /api/invoices/{id}/pdf", protect("invoice", gate.ActionView, cfg.InvoiceHandler.PDF))

	mux.Handle("GET /api/dashboard", auth.RequireAuth(http.HandlerFunc(cfg.DashboardHandler.Show)))
	mux.Handle("GET /api/events", auth.RequireAuth(http.HandlerFunc(cfg.EventsHandler.Stream)))

	var handler http.Handler = mux
	handler = auth.Middleware(handler)
	handler = middleware.Prefs(handler)
	handler = middleware.RequestLogger(log)(handler)
	return handler
}
