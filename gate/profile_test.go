package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/tarikbs/repairdesk/gate"
)

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := gate.NewStaticResolver()
	inner.Set(1, gate.NewStaticProfile(1, "editor"))
	cached := gate.NewCachedResolver(inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p1.Name() != "editor" {
		t.Fatalf("name = %q", p1.Name())
	}

	inner.Set(1, gate.NewStaticProfile(1, "admin"))
	p2, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p2.Name() != "editor" {
		t.Errorf("expected cached profile, got %q", p2.Name())
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := gate.NewStaticResolver()
	inner.Set(1, gate.NewStaticProfile(1, "editor"))
	cached := gate.NewCachedResolver(inner, 5*time.Minute)

	if _, err := cached.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	inner.Set(1, gate.NewStaticProfile(1, "admin"))
	cached.Invalidate(1)

	p, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Name() != "admin" {
		t.Errorf("invalidate did not drop cache, got %q", p.Name())
	}
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	inner := gate.NewStaticResolver()
	inner.Set(1, gate.NewStaticProfile(1, "editor"))
	cached := gate.NewCachedResolver(inner, 10*time.Millisecond)

	if _, err := cached.Resolve(context.Background(), 1); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	inner.Set(1, gate.NewStaticProfile(1, "admin"))
	time.Sleep(20 * time.Millisecond)

	p, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Name() != "admin" {
		t.Errorf("expired entry still served, got %q", p.Name())
	}
}

func TestStaticProfile_HasPermission(t *testing.T) {
	p := gate.NewStaticProfile(1, "staff", "job:view", "job:create")
	if !p.HasPermission("job:view") {
		t.Error("granted permission missing")
	}
	if p.HasPermission("job:delete") {
		t.Error("ungranted permission present")
	}
}
