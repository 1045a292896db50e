package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tarikbs/repairdesk/internal/feed"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/sequence"
)

func TestCreate_AllocatesAndFormatsNumber(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, _ := newTestActions(t, db, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	wantFirst := sequence.FormatJobNumber(user.NumberPrefix(), 1)
	if first.JobCardNumber != wantFirst {
		t.Errorf("first number = %q, want %q", first.JobCardNumber, wantFirst)
	}
	wantSecond := sequence.FormatJobNumber(user.NumberPrefix(), 2)
	if second.JobCardNumber != wantSecond {
		t.Errorf("second number = %q, want %q", second.JobCardNumber, wantSecond)
	}
	if first.Details.Status != models.JobStatusInProgress {
		t.Errorf("new job status = %q, want In Progress", first.Details.Status)
	}
}

func TestCreate_ValidationNeverConsumesNumber(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	alloc := &stubAllocator{}
	svc, _ := newTestActions(t, db, alloc)

	in := validInput()
	in.Customer.Phone = "12345"
	_, err := svc.Create(context.Background(), user.ID, user.NumberPrefix(), in)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if alloc.callCount() != 0 {
		t.Errorf("allocator called %d times for rejected input, want 0", alloc.callCount())
	}
}

func TestCreate_RetriesOnInsertConflict(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	// A row already holds number 2, so the first scripted allocation
	// collides on the unique index and the retry takes a fresh number.
	taken := models.Job{
		UserID:        user.ID,
		JobCardNumber: sequence.FormatJobNumber(user.NumberPrefix(), 2),
		CustomerName:  "Existing",
		CustomerPhone: "0000000000",
	}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	alloc := &stubAllocator{numbers: []int{2, 3}}
	svc, _ := newTestActions(t, db, alloc)

	card, err := svc.Create(context.Background(), user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := sequence.FormatJobNumber(user.NumberPrefix(), 3)
	if card.JobCardNumber != want {
		t.Errorf("number = %q, want %q (gap over the conflicting allocation)", card.JobCardNumber, want)
	}
	if alloc.callCount() != 2 {
		t.Errorf("allocator calls = %d, want 2", alloc.callCount())
	}
}

func TestJobNumberUniquePerOwnerOnly(t *testing.T) {
	db := setupJobsDB(t)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")

	row := func(userID uint, number string) *models.Job {
		return &models.Job{
			UserID:        userID,
			JobCardNumber: number,
			CustomerName:  "Customer",
			CustomerPhone: "0000000000",
		}
	}

	// Two owners may hold the same number; prefix collisions between
	// users must not block either of them.
	if err := db.Create(row(a.ID, "ABCD-0001")).Error; err != nil {
		t.Fatalf("create for user a: %v", err)
	}
	if err := db.Create(row(b.ID, "ABCD-0001")).Error; err != nil {
		t.Fatalf("create same number for user b: %v", err)
	}

	// The same owner may not.
	if err := db.Create(row(a.ID, "ABCD-0001")).Error; err == nil {
		t.Fatal("expected unique violation for duplicate number on one owner")
	}
}

func TestCreate_ExhaustsRetries(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	alloc := &stubAllocator{err: errors.New("counter unavailable")}
	svc, _ := newTestActions(t, db, alloc)

	_, err := svc.Create(context.Background(), user.ID, user.NumberPrefix(), validInput())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if alloc.callCount() != createAttempts {
		t.Errorf("allocator calls = %d, want %d", alloc.callCount(), createAttempts)
	}
	for _, frag := range []string{"attempt 1", "attempt 3", "counter unavailable"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q missing %q", err, frag)
		}
	}
}

func TestCreate_PublishesInsertChange(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, f := newTestActions(t, db, nil)
	ch, cancel := f.Subscribe(user.ID)
	defer cancel()

	card, err := svc.Create(context.Background(), user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	change := <-ch
	if change.Op != feed.OpInsert || change.JobID != card.ID {
		t.Errorf("change = %+v, want insert for %s", change, card.ID)
	}
}

func TestUpdate_PartialPatchKeepsOtherFields(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, _ := newTestActions(t, db, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, user.ID, card.ID, Input{
		Details: &DetailsInput{Problem: "battery swollen", Status: "Waiting for Parts", HandlingFees: 25.0},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Details.Problem != "battery swollen" || updated.Details.Status != models.JobStatusWaitingForParts {
		t.Errorf("details = %+v", updated.Details)
	}
	if updated.Customer.Name != card.Customer.Name || updated.Customer.Phone != card.Customer.Phone {
		t.Errorf("customer changed by details-only patch: %+v", updated.Customer)
	}
	if updated.JobCardNumber != card.JobCardNumber {
		t.Errorf("job number changed on update")
	}
}

func TestUpdate_UnknownJob(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, _ := newTestActions(t, db, nil)

	card, err := svc.Create(context.Background(), user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other := seedUser(t, db, "other@example.com")
	_, err = svc.Update(context.Background(), other.ID, card.ID, Input{
		Details: &DetailsInput{Problem: "hijack"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update of foreign job: err = %v, want ErrNotFound", err)
	}
}

func TestSetStatus_TolerantInput(t *testing.T) {
	db := setupJobsDB(t)
	user := seedUser(t, db, "shop@example.com")
	svc, _ := newTestActions(t, db, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, user.ID, user.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.SetStatus(ctx, user.ID, card.ID, "Finished")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Details.Status != models.JobStatusCompleted {
		t.Errorf("status = %q, want Completed", updated.Details.Status)
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	db := setupJobsDB(t)
	owner := seedUser(t, db, "owner@example.com")
	intruder := seedUser(t, db, "intruder@example.com")
	svc, _ := newTestActions(t, db, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, owner.ID, owner.NumberPrefix(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, intruder.ID, card.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: err = %v, want ErrNotFound", err)
	}
	var count int64
	db.Model(&models.Job{}).Where("id = ?", card.ID).Count(&count)
	if count != 1 {
		t.Fatalf("job deleted by non-owner")
	}

	if err := svc.Delete(ctx, owner.ID, card.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(ctx, owner.ID, card.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirstAndScoped(t *testing.T) {
	db := setupJobsDB(t)
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")
	svc, _ := newTestActions(t, db, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, a.ID, a.NumberPrefix(), validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, b.ID, b.NumberPrefix(), validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	cards, err := svc.List(ctx, a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("list returned %d jobs for user a, want 1", len(cards))
	}
}
