package service

import (
	"context"
	"fmt"
	"time"

	accessdomain "device-health-plane/internal/access/domain"
	"device-health-plane/internal/license/domain"
	"device-health-plane/internal/platform/apperr"
)

// LimitAction selects how AdjustLimit changes a license's device limit.
type LimitAction string

const (
	// ActionIncrease raises the limit; accepted only if the new limit is
	// strictly greater than the current one.
	ActionIncrease LimitAction = "increase"
	// ActionReduce lowers the limit; accepted only if the new limit is
	// strictly lower than the current one.
	ActionReduce LimitAction = "reduce"
	// ActionOffload shrinks the limit to the license's current active
	// device count.
	ActionOffload LimitAction = "offload"
)

// Capacity is an organization's total enrollment capacity across its
// active, non-expired licenses.
type Capacity struct {
	TotalCapacity  int
	ActiveLicenses int
}

// LicenseRepo is the minimal license repository needed by the ledger.
type LicenseRepo interface {
	GetByKey(ctx context.Context, key string) (*domain.License, error)
	SumActiveCapacity(ctx context.Context, orgID string, now time.Time) (total int, activeLicenses int, err error)
	SetDeviceLimitIfGreater(ctx context.Context, key string, newLimit int) (int, error)
	SetDeviceLimitIfLower(ctx context.Context, key string, newLimit int) (int, error)
	SetDeviceLimitToActiveCount(ctx context.Context, key string) (int, error)
}

// Authorizer decides whether a principal may perform a capacity-affecting write.
type Authorizer interface {
	AuthorizeWrite(ctx context.Context, principal accessdomain.Principal, action string) error
}

// Reconciler refreshes the org's usage snapshot after a capacity change.
type Reconciler interface {
	Recompute(ctx context.Context, orgID string) error
}

// AuditLogger records capacity mutations. Best-effort; implementations must not fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Ledger owns license capacity: totals per organization, per-key
// usability, and idempotent device-limit adjustment.
type Ledger struct {
	repo       LicenseRepo
	authorizer Authorizer
	reconciler Reconciler
	audit      AuditLogger
}

// NewLedger returns a Ledger with the given dependencies. audit may be nil.
func NewLedger(repo LicenseRepo, authorizer Authorizer, reconciler Reconciler, audit AuditLogger) *Ledger {
	return &Ledger{repo: repo, authorizer: authorizer, reconciler: reconciler, audit: audit}
}

// ComputeCapacity sums device limits over the org's active, non-expired
// licenses. An org with no licenses yields zero capacity and no error; new
// orgs start in that state.
func (s *Ledger) ComputeCapacity(ctx context.Context, orgID string) (Capacity, error) {
	total, count, err := s.repo.SumActiveCapacity(ctx, orgID, time.Now().UTC())
	if err != nil {
		return Capacity{}, err
	}
	return Capacity{TotalCapacity: total, ActiveLicenses: count}, nil
}

// IsLicenseUsable reports whether the license admits new device enrollment:
// active, paid, and not expired. A missing license is simply not usable.
func (s *Ledger) IsLicenseUsable(ctx context.Context, key string) (bool, error) {
	lic, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if lic == nil {
		return false, nil
	}
	return lic.Usable(time.Now().UTC()), nil
}

// AdjustLimit applies a limit action to the license. An action whose
// precondition does not hold is a no-op returning the unchanged limit, not
// an error; the API is idempotent capacity management. The precondition is
// re-evaluated inside the repository's UPDATE so concurrent adjustments
// serialize on the row.
//
// A limit may end up below the currently enrolled device count; the usage
// snapshot surfaces the overage rather than the ledger blocking it.
func (s *Ledger) AdjustLimit(ctx context.Context, principal accessdomain.Principal, key string, action LimitAction, newLimit int) (int, error) {
	if err := s.authorizer.AuthorizeWrite(ctx, principal, "license.adjust_limit"); err != nil {
		return 0, err
	}
	lic, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return 0, err
	}
	if lic == nil {
		return 0, apperr.NotFoundf("license %s does not exist", key)
	}
	if lic.OrgID != principal.OrgID() {
		return 0, apperr.InvalidLicensef("license %s belongs to another organization", key)
	}

	var limit int
	switch action {
	case ActionIncrease:
		if newLimit < 0 {
			return 0, apperr.Validationf("new limit must be >= 0")
		}
		if newLimit <= lic.DeviceLimit {
			return lic.DeviceLimit, nil
		}
		limit, err = s.repo.SetDeviceLimitIfGreater(ctx, key, newLimit)
	case ActionReduce:
		if newLimit < 0 {
			return 0, apperr.Validationf("new limit must be >= 0")
		}
		if newLimit >= lic.DeviceLimit {
			return lic.DeviceLimit, nil
		}
		limit, err = s.repo.SetDeviceLimitIfLower(ctx, key, newLimit)
	case ActionOffload:
		limit, err = s.repo.SetDeviceLimitToActiveCount(ctx, key)
	default:
		return 0, apperr.Validationf("unknown limit action %q", action)
	}
	if err != nil {
		return 0, err
	}

	if s.audit != nil {
		s.audit.LogEvent(ctx, lic.OrgID, principal.UserID, "license.adjust_limit", key,
			fmt.Sprintf(`{"action":%q,"limit":%d}`, action, limit))
	}
	if err := s.reconciler.Recompute(ctx, lic.OrgID); err != nil {
		return limit, err
	}
	return limit, nil
}
