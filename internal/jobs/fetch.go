package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tarikbs/repairdesk/internal/feed"
)

// ErrSuperseded is returned to a single-job fetch whose request was
// cancelled by a newer fetch for a different job. The caller should drop
// the result silently; the newer request owns the outcome.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

const defaultDebounce = time.Second

// FetchService keeps a per-user view of the job list in sync with the
// store. It serializes list refreshes, de-duplicates concurrent single-job
// fetches and applies last-request-wins to competing single-job fetches
// for different ids.
type FetchService struct {
	actions *ActionService
	feed    *feed.Feed
	userID  uint
	log     *logrus.Entry

	// debounce is the quiet window after a change event before the list
	// is refetched. Shortened in tests.
	debounce time.Duration

	fetchingAll atomic.Bool
	group       singleflight.Group

	mu        sync.Mutex
	cards     []Card
	lastErr   error
	fetchedAt time.Time
	oneID     uuid.UUID
	oneCancel context.CancelFunc
}

func NewFetchService(actions *ActionService, f *feed.Feed, userID uint, log *logrus.Logger) *FetchService {
	return &FetchService{
		actions:  actions,
		feed:     f,
		userID:   userID,
		log:      log.WithField("user_id", userID),
		debounce: defaultDebounce,
	}
}

// FetchAll refreshes the cached job list. If a refresh is already running
// the call is a no-op and returns the current snapshot; the in-flight
// refresh will deliver the fresh data.
func (s *FetchService) FetchAll(ctx context.Context) ([]Card, error) {
	if !s.fetchingAll.CompareAndSwap(false, true) {
		s.log.Debug("job list fetch already in flight, skipping")
		return s.Cards(), nil
	}
	defer s.fetchingAll.Store(false)

	cards, err := s.actions.List(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.log.WithError(err).Error("job list fetch failed")
		return s.snapshotLocked(), err
	}
	s.cards = cards
	s.fetchedAt = time.Now()
	return s.snapshotLocked(), nil
}

// FetchOne loads a single job. Concurrent calls for the same id share one
// request. A call for a different id cancels the request in flight; the
// cancelled caller gets ErrSuperseded and its result is discarded.
func (s *FetchService) FetchOne(ctx context.Context, id uuid.UUID) (*Card, error) {
	s.mu.Lock()
	if s.oneCancel != nil && s.oneID != id {
		s.oneCancel()
		s.oneCancel = nil
	}
	fetchCtx := ctx
	if s.oneCancel == nil {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		s.oneID = id
		s.oneCancel = cancel
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		card, err := s.actions.Get(fetchCtx, s.userID, id)
		s.mu.Lock()
		if s.oneID == id && s.oneCancel != nil {
			s.oneCancel()
			s.oneCancel = nil
		}
		s.mu.Unlock()
		return card, err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	card := v.(*Card)
	s.mu.Lock()
	for i := range s.cards {
		if s.cards[i].ID == card.ID {
			s.cards[i] = *card
			break
		}
	}
	s.mu.Unlock()
	return card, nil
}

// Cards returns the current snapshot of the cached list.
func (s *FetchService) Cards() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// LastError returns the error of the most recent list refresh, nil after a
// successful one.
func (s *FetchService) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *FetchService) snapshotLocked() []Card {
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Watch subscribes to the change feed and refetches the job list after the
// stream has been quiet for the debounce window. A burst of changes
// produces a single refetch. A refetch already in flight absorbs the
// pending one. Watch blocks until ctx is done; run it in its own
// goroutine.
func (s *FetchService) Watch(ctx context.Context) {
	ch, unsubscribe := s.feed.Subscribe(s.userID)
	defer unsubscribe()

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(s.debounce)
			armed = true
		case <-timer.C:
			armed = false
			if s.fetchingAll.Load() {
				s.log.Debug("refetch skipped, list fetch already in flight")
				continue
			}
			if _, err := s.FetchAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.WithError(err).Warn("debounced refetch failed")
			}
		}
	}
}
