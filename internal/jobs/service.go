package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/sequence"
)

// ErrNotFound is returned when a job does not exist or belongs to another
// user. The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("job not found or unauthorized")

const (
	createAttempts = 3
	createBackoff  = 100 * time.Millisecond
)

// ActionService performs job mutations. All operations are scoped to the
// acting user; rows belonging to other users are invisible.
type ActionService struct {
	db    *gorm.DB
	alloc sequence.Allocator
	feed  *feed.Feed
	log   *logrus.Logger
}

func NewActionService(db *gorm.DB, alloc sequence.Allocator, f *feed.Feed, log *logrus.Logger) *ActionService {
	return &ActionService{db: db, alloc: alloc, feed: f, log: log}
}

// Create validates the input, allocates the next job-card number and inserts
// the row. Validation runs first so a rejected job never consumes a number.
// Allocation and insert are retried as a pair up to three times with a short
// fixed pause; a failed insert abandons its number and the next attempt
// allocates a fresh one, which leaves a gap in the sequence. Gaps are
// harmless: uniqueness and ordering hold regardless.
func (s *ActionService) Create(ctx context.Context, userID uint, userKey string, in Input) (*Card, error) {
	row, err := toRow(in, userID)
	if err != nil {
		return nil, err
	}

	var attemptErrs []error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(createBackoff):
			case <-ctx.Done():
				attemptErrs = append(attemptErrs, ctx.Err())
				return nil, errors.Join(attemptErrs...)
			}
		}

		n, err := s.alloc.Next(ctx, userID)
		if err != nil {
			attemptErrs = append(attemptErrs, fmt.Errorf("attempt %d: allocate number: %w", attempt, err))
			continue
		}
		row.ID = uuid.Nil
		row.JobCardNumber = sequence.FormatJobNumber(userKey, n)

		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			attemptErrs = append(attemptErrs, fmt.Errorf("attempt %d: insert %s: %w", attempt, row.JobCardNumber, err))
			s.log.WithFields(logrus.Fields{
				"user_id": userID,
				"number":  row.JobCardNumber,
				"attempt": attempt,
			}).WithError(err).Warn("job insert failed, retrying")
			continue
		}

		s.feed.Publish(feed.Change{UserID: userID, Op: feed.OpInsert, JobID: row.ID})
		card := toDomain(row)
		return &card, nil
	}
	return nil, fmt.Errorf("create job: %w", errors.Join(attemptErrs...))
}

// Update applies a partial patch to a job owned by userID. Sub-objects
// absent from the input keep their stored values.
func (s *ActionService) Update(ctx context.Context, userID uint, id uuid.UUID, in Input) (*Card, error) {
	patch, err := toPatch(in)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return s.Get(ctx, userID, id)
	}

	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(patch)
	if res.Error != nil {
		return nil, fmt.Errorf("update job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.feed.Publish(feed.Change{UserID: userID, Op: feed.OpUpdate, JobID: id})
	return s.Get(ctx, userID, id)
}

// SetStatus moves a job to a new lifecycle state. Input is tolerant: any
// recognized spelling or translation resolves to its canonical status.
func (s *ActionService) SetStatus(ctx context.Context, userID uint, id uuid.UUID, status string) (*Card, error) {
	return s.Update(ctx, userID, id, Input{Details: &DetailsInput{Status: status}})
}

// Delete removes a job after confirming the caller owns it. A missing row
// and a row owned by someone else produce the same error.
func (s *ActionService) Delete(ctx context.Context, userID uint, id uuid.UUID) error {
	var owner struct{ UserID uint }
	err := s.db.WithContext(ctx).Model(&models.Job{}).
		Select("user_id").
		Where("id = ?", id).
		Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if owner.UserID != userID {
		return ErrNotFound
	}

	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Job{}).Error; err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	s.feed.Publish(feed.Change{UserID: userID, Op: feed.OpDelete, JobID: id})
	return nil
}

// Get loads a single owned job with its company association.
func (s *ActionService) Get(ctx context.Context, userID uint, id uuid.UUID) (*Card, error) {
	var row models.Job
	err := s.db.WithContext(ctx).
		Preload("Company").
		Where("id = ? AND user_id = ?", id, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	card := toDomain(row)
	return &card, nil
}

// List returns all jobs owned by userID, newest first.
func (s *ActionService) List(ctx context.Context, userID uint) ([]Card, error) {
	var rows []models.Job
	err := s.db.WithContext(ctx).
		Preload("Company").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	cards := make([]Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, toDomain(row))
	}
	return cards, nil
}
