package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/models"
)

// queryCounter counts list and single-row job queries, optionally slowing
// single-row lookups so tests can observe requests in flight.
type queryCounter struct {
	list     atomic.Int32
	one      atomic.Int32
	oneDelay atomic.Int64
}

func installQueryCounter(t *testing.T, db *gorm.DB) *queryCounter {
	t.Helper()
	qc := &queryCounter{}
	err := db.Callback().Query().Before("gorm:query").Register("test_query_counter", func(tx *gorm.DB) {
		switch tx.Statement.Dest.(type) {
		case *[]models.Job:
			qc.list.Add(1)
		case *models.Job:
			qc.one.Add(1)
			if d := qc.oneDelay.Load(); d > 0 {
				time.Sleep(time.Duration(d))
			}
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return qc
}

func newTestFetch(t *testing.T, db *gorm.DB, userID uint) (*FetchService, *ActionService, *feed.Feed) {
	t.Helper()
	actions, f := newTestActions(t, db, nil)
	svc := NewFetchService(actions, f, userID, quietLogger())
	svc.debounce = 40 * time.Millisecond
	return svc, actions, f
}

func TestFetchAll_SkipsWhileInFlight(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	qc := installQueryCounter(t, db)
	svc, actions, _ := newTestFetch(t, db, user.ID)
	ctx := context.Background()

	if _, err := actions.Create(ctx, user.ID, user.NumberPrefix(), validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate a refresh in flight: the overlapping call must not hit the
	// store, it returns the current snapshot.
	svc.fetchingAll.Store(true)
	cards, err := svc.FetchAll(ctx)
	if err != nil {
		t.Fatalf("overlapping fetch: %v", err)
	}
	if qc.list.Load() != 0 {
		t.Fatalf("overlapping fetch hit the store %d times, want 0", qc.list.Load())
	}
	if len(cards) != 0 {
		t.Fatalf("expected stale empty snapshot, got %d cards", len(cards))
	}
	svc.fetchingAll.Store(false)

	cards, err = svc.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if qc.list.Load() != 1 || len(cards) != 1 {
		t.Fatalf("fetch after release: queries=%d cards=%d", qc.list.Load(), len(cards))
	}
}

func TestFetchOne_ConcurrentSameIDShareOneQuery(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	qc := installQueryCounter(t, db)
	svc, actions, _ := newTestFetch(t, db, user.ID)
	ctx := context.Background()

	card, err := actions.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	qc.one.Store(0)
	qc.oneDelay.Store(int64(50 * time.Millisecond))

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got, err := svc.FetchOne(ctx, card.ID)
			if err == nil && got.ID != card.ID {
				err = errors.New("wrong card")
			}
			errs[i] = err
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if got := qc.one.Load(); got != 1 {
		t.Errorf("store queried %d times for one shared fetch, want 1", got)
	}
}

func TestFetchOne_NewIDCancelsPrevious(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	qc := installQueryCounter(t, db)
	svc, actions, _ := newTestFetch(t, db, user.ID)
	ctx := context.Background()

	first, err := actions.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := actions.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	qc.oneDelay.Store(int64(60 * time.Millisecond))

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.FetchOne(ctx, first.ID)
		firstErr <- err
	}()

	// Wait until the first request is registered as in flight.
	deadline := time.Now().Add(time.Second)
	for {
		svc.mu.Lock()
		inFlight := svc.oneCancel != nil && svc.oneID == first.ID
		svc.mu.Unlock()
		if inFlight {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never became in flight")
		}
		time.Sleep(time.Millisecond)
	}

	got, err := svc.FetchOne(ctx, second.ID)
	if err != nil {
		t.Fatalf("newer fetch: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("newer fetch returned %s, want %s", got.ID, second.ID)
	}
	if err := <-firstErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("superseded fetch: err = %v, want ErrSuperseded", err)
	}
}

func TestFetchOne_RefreshesCachedListEntry(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, actions, _ := newTestFetch(t, db, user.ID)
	ctx := context.Background()

	card, err := actions.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.FetchAll(ctx); err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if _, err := actions.SetStatus(ctx, user.ID, card.ID, "Completed"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if _, err := svc.FetchOne(ctx, card.ID); err != nil {
		t.Fatalf("fetch one: %v", err)
	}
	cards := svc.Cards()
	if len(cards) != 1 || cards[0].Details.Status != models.JobStatusCompleted {
		t.Errorf("cached list not refreshed: %+v", cards)
	}
}

func TestWatch_DebouncesBurstIntoOneRefetch(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	qc := installQueryCounter(t, db)
	svc, _, f := newTestFetch(t, db, user.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Watch(ctx)
	time.Sleep(20 * time.Millisecond) // let the watcher subscribe

	for i := 0; i < 5; i++ {
		f.Publish(feed.Change{UserID: user.ID, Op: feed.OpUpdate})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := qc.list.Load(); got != 1 {
		t.Errorf("burst of 5 changes caused %d refetches, want 1", got)
	}

	// The window re-arms for later activity.
	f.Publish(feed.Change{UserID: user.ID, Op: feed.OpDelete})
	time.Sleep(150 * time.Millisecond)
	if got := qc.list.Load(); got != 2 {
		t.Errorf("follow-up change caused %d total refetches, want 2", got)
	}
}

func TestWatch_SkipsWhenManualFetchInFlight(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	qc := installQueryCounter(t, db)
	svc, _, f := newTestFetch(t, db, user.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Watch(ctx)
	time.Sleep(20 * time.Millisecond)

	svc.fetchingAll.Store(true)
	f.Publish(feed.Change{UserID: user.ID, Op: feed.OpInsert})
	time.Sleep(120 * time.Millisecond)
	svc.fetchingAll.Store(false)

	if got := qc.list.Load(); got != 0 {
		t.Errorf("refetch ran %d times while a manual fetch was in flight, want 0", got)
	}
}

func TestSessions_LifecyclePerUser(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	actions, _ := newTestActions(t, db, nil)
	sessions := NewSessions(actions, quietLogger())
	defer sessions.CloseAll()

	first := sessions.For(user.ID)
	if sessions.For(user.ID) != first {
		t.Fatal("same user should reuse one fetch service")
	}

	sessions.Close(user.ID)
	if sessions.For(user.ID) == first {
		t.Fatal("closed session must be replaced, not reused")
	}
}

func TestSessions_CloseAllStopsWatchersBeforeFeedClose(t *testing.T) {
	db := setupJobsDB(t)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")
	actions, f := newTestActions(t, db, nil)
	sessions := NewSessions(actions, quietLogger())

	sessions.For(a.ID)
	sessions.For(b.ID)

	// CloseAll waits for the watcher goroutines, so by the time it
	// returns every subscription has been cancelled and closing the
	// feed afterwards finds nothing left to tear down.
	sessions.CloseAll()
	f.Close()
	f.Publish(feed.Change{UserID: a.ID, Op: feed.OpInsert})
}
