package policy

import (
	"context"

	"github.com/tarikbs/repairdesk/gate"
)

// Ownable is implemented by models that belong to a single user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows access only when the acting user owns the
// resource. With a nil resource (list/create) it defers to profile
// permissions. Resources that do not implement Ownable are denied so a
// model can never slip past the check by accident.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// AdminBypassPolicy lets admins through unconditionally and defers to the
// wrapped policy for everyone else.
type AdminBypassPolicy struct {
	inner   gate.Policy
	isAdmin func(ctx context.Context, userID uint) bool
}

func NewAdminBypassPolicy(inner gate.Policy, isAdmin func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
