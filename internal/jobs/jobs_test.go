package jobs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/sequence"
)

func setupJobsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Company{}, &models.Job{}, &models.JobCounter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// SQLite allows one writer; funnel everything through a single
	// connection so concurrent tests exercise the SQL, not driver locking.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

// stubAllocator hands out a scripted list of numbers and counts calls, so
// tests can assert exactly when allocation happens.
type stubAllocator struct {
	mu      sync.Mutex
	numbers []int
	err     error
	calls   int
}

func (s *stubAllocator) Next(_ context.Context, _ uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if len(s.numbers) == 0 {
		return s.calls, nil
	}
	n := s.numbers[0]
	s.numbers = s.numbers[1:]
	return n, nil
}

func (s *stubAllocator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestActions(t *testing.T, db *gorm.DB, alloc sequence.Allocator) (*ActionService, *feed.Feed) {
	t.Helper()
	f := feed.New()
	t.Cleanup(f.Close)
	if alloc == nil {
		alloc = sequence.NewAllocator(db)
	}
	return NewActionService(db, alloc, f, quietLogger()), f
}

func validInput() Input {
	return Input{
		Customer: &CustomerInput{Name: "Alice Romero", Phone: "0612345678", Email: "alice@example.com"},
		Device:   &DeviceInput{Name: "Laptop", Model: "XPS 13", Condition: "scratched lid"},
		Details:  &DetailsInput{Problem: "does not boot", HandlingFees: 15.0},
	}
}
