// Package sequence allocates per-user job-card numbers. The counter row is
// incremented in a single atomic statement so that concurrent sessions can
// never observe or produce the same value, and numbers are strictly
// increasing in allocation order. Nothing else touches job_counters.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Allocator hands out job-card sequence numbers.
type Allocator interface {
	// Next returns the next number for the user. Uniqueness and monotonicity
	// hold per user even under concurrent calls. Any failure (including a
	// missing result row) is fatal for the caller's current attempt; Next
	// never retries internally.
	Next(ctx context.Context, userID uint) (int, error)
}

// CounterAllocator is the database-backed Allocator.
type CounterAllocator struct {
	db *gorm.DB
}

// NewAllocator creates an allocator on the given connection.
func NewAllocator(db *gorm.DB) *CounterAllocator {
	return &CounterAllocator{db: db}
}

// Next increments and returns the user's counter. A single upsert keeps the
// read-modify-write inside the database; the client never sees an
// intermediate value. Works on both Postgres and SQLite.
func (a *CounterAllocator) Next(ctx context.Context, userID uint) (int, error) {
	var result struct {
		LastNumber *int
	}
	err := a.db.WithContext(ctx).Raw(`
		INSERT INTO job_counters (user_id, last_number) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET last_number = job_counters.last_number + 1
		RETURNING last_number`, userID).Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("allocate job number for user %d: %w", userID, err)
	}
	if result.LastNumber == nil || *result.LastNumber <= 0 {
		return 0, fmt.Errorf("allocate job number for user %d: counter returned no value", userID)
	}
	return *result.LastNumber, nil
}

// FormatJobNumber renders the human-readable job-card identifier:
// the first four characters of the user's public key, uppercased, then the
// sequence number zero-padded to four digits (e.g. "A3F9-0042"). Keys
// shorter than four characters are a programmer error.
func FormatJobNumber(userKey string, n int) string {
	return fmt.Sprintf("%s-%04d", strings.ToUpper(userKey[:4]), n)
}

// FormatInvoiceNumber renders an invoice identifier from the same per-user
// sequence domain, with a fixed INV prefix (e.g. "INV-A3F9-0042").
func FormatInvoiceNumber(userKey string, n int) string {
	return "INV-" + FormatJobNumber(userKey, n)
}
