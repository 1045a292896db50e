package policy

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/handlers"
	"github.com/tarikbs/repairdesk/internal/jobs"
	"github.com/tarikbs/repairdesk/internal/sequence"
	"github.com/tarikbs/repairdesk/internal/services"
)

// RouterConfig wires the authorization gate, domain services and handlers
// into one bundle the router can register routes from.
type RouterConfig struct {
	AuthGate *AuthGate

	Feed     *feed.Feed
	Actions  *jobs.ActionService
	Sessions *jobs.Sessions

	InvoiceService   *services.InvoiceService
	DashboardService *services.DashboardService

	AuthHandler      *handlers.AuthHandler
	JobHandler       *handlers.JobHandler
	CompanyHandler   *handlers.CompanyHandler
	InvoiceHandler   *handlers.InvoiceHandler
	DashboardHandler *handlers.DashboardHandler
	EventsHandler    *handlers.EventsHandler
	HealthHandler    *handlers.HealthHandler
}

// NewRouterConfig builds the full application wiring on top of a database
// connection.
func NewRouterConfig(db *gorm.DB, log *logrus.Logger) *RouterConfig {
	authGate := NewAuthGate(db, 5*time.Minute)

	ownership := NewOwnershipPolicy()
	authGate.RegisterPolicy("job", ownership)
	authGate.RegisterPolicy("invoice", ownership)
	authGate.RegisterPolicy("company", ownership)

	changeFeed := feed.New()
	alloc := sequence.NewAllocator(db)
	actions := jobs.NewActionService(db, alloc, changeFeed, log)
	sessions := jobs.NewSessions(actions, log)

	invoiceService := services.NewInvoiceService(db, alloc, log)
	dashboardService := services.NewDashboardService(db, invoiceService)

	return &RouterConfig{
		AuthGate:         authGate,
		Feed:             changeFeed,
		Actions:          actions,
		Sessions:         sessions,
		InvoiceService:   invoiceService,
		DashboardService: dashboardService,
		AuthHandler:      handlers.NewAuthHandler(db, sessions),
		JobHandler:       handlers.NewJobHandler(db, actions, sessions),
		CompanyHandler:   handlers.NewCompanyHandler(db, invoiceService),
		InvoiceHandler:   handlers.NewInvoiceHandler(db, invoiceService),
		DashboardHandler: handlers.NewDashboardHandler(dashboardService),
		EventsHandler:    handlers.NewEventsHandler(changeFeed),
		HealthHandler:    handlers.NewHealthHandler(db),
	}
}

// Shutdown stops background work owned by the config.
func (cfg *RouterConfig) Shutdown() {
	cfg.Sessions.CloseAll()
	cfg.Feed.Close()
}
