package audit

import (
	"context"
	"errors"
	"testing"

	"device-health-plane/internal/audit/domain"
)

type mockRepo struct {
	created []*domain.AuditLog
	err     error
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, a)
	return nil
}

func TestLogEvent(t *testing.T) {
	repo := &mockRepo{}
	l := NewLogger(repo)

	l.LogEvent(context.Background(), "org-1", "user-1", "license.adjust_limit", "LIC-A", `{"action":"offload"}`)

	if len(repo.created) != 1 {
		t.Fatalf("created %d entries, want 1", len(repo.created))
	}
	e := repo.created[0]
	if e.ID == "" {
		t.Error("entry ID should be generated")
	}
	if e.OrgID != "org-1" || e.UserID != "user-1" || e.Action != "license.adjust_limit" || e.Resource != "LIC-A" {
		t.Errorf("entry = %+v, want the passed fields recorded", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestLogEvent_EmptyOrgUsesSentinel(t *testing.T) {
	repo := &mockRepo{}
	NewLogger(repo).LogEvent(context.Background(), "", "", "retention.prune", "", "")

	if len(repo.created) != 1 {
		t.Fatalf("created %d entries, want 1", len(repo.created))
	}
	if got := repo.created[0].OrgID; got != SentinelOrgID {
		t.Errorf("OrgID = %q, want sentinel %q", got, SentinelOrgID)
	}
}

func TestLogEvent_RepoFailureDoesNotPanic(t *testing.T) {
	l := NewLogger(&mockRepo{err: errors.New("down")})
	// Best-effort: must not panic or surface the error.
	l.LogEvent(context.Background(), "org-1", "user-1", "group.create", "g1", "")
}

func TestLogEvent_NilRepoIsNoop(t *testing.T) {
	var l Logger
	l.LogEvent(context.Background(), "org-1", "user-1", "group.create", "g1", "")
}
