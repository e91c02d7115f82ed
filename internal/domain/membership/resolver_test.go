package membership

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	memberships map[string]*Membership
	grants      map[uuid.UUID][]Grant
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		memberships: map[string]*Membership{},
		grants:      map[uuid.UUID][]Grant{},
	}
}

func (f *fakeRepo) key(userID, communityID uuid.UUID) string {
	return userID.String() + ":" + communityID.String()
}

func (f *fakeRepo) Create(ctx context.Context, m *Membership) error {
	f.memberships[f.key(m.UserID, m.CommunityID)] = m
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error) {
	return f.memberships[f.key(userID, communityID)], nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	for _, m := range f.memberships {
		if m.ID == id {
			m.Status = status
			m.BanReason = sql.NullString{}
			m.BanExpiration = sql.NullTime{}
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) UpdateBan(ctx context.Context, id uuid.UUID, reason sql.NullString, expiration sql.NullTime) error {
	for _, m := range f.memberships {
		if m.ID == id {
			m.Status = StatusBanned
			m.BanReason = reason
			m.BanExpiration = expiration
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) Delete(ctx context.Context, userID, communityID uuid.UUID) error {
	delete(f.memberships, f.key(userID, communityID))
	return nil
}

func (f *fakeRepo) ListByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]*Membership, error) {
	var out []*Membership
	for _, m := range f.memberships {
		if m.CommunityID == communityID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) AddGrant(ctx context.Context, membershipID, permissionID uuid.UUID) error {
	f.grants[membershipID] = append(f.grants[membershipID], Grant{PermissionID: permissionID, IsActive: true})
	return nil
}

func (f *fakeRepo) RemoveGrant(ctx context.Context, membershipID, permissionID uuid.UUID) (bool, error) {
	grants := f.grants[membershipID]
	for i, g := range grants {
		if g.PermissionID == permissionID {
			f.grants[membershipID] = append(grants[:i], grants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListGrants(ctx context.Context, membershipID uuid.UUID) ([]Grant, error) {
	return f.grants[membershipID], nil
}

func TestResolveAbsentIsVisitor(t *testing.T) {
	resolver := NewResolver(newFakeRepo())

	res, err := resolver.Resolve(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusVisitor {
		t.Fatalf("expected visitor, got %s", res.Status)
	}
	if len(res.CustomGrants) != 0 {
		t.Fatalf("expected no grants, got %d", len(res.CustomGrants))
	}
}

func TestResolvePendingCarriesNoGrants(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	communityID := uuid.New()
	m := &Membership{ID: uuid.New(), UserID: userID, CommunityID: communityID, Status: StatusPending}
	repo.memberships[repo.key(userID, communityID)] = m
	repo.grants[m.ID] = []Grant{{PermissionID: uuid.New(), Resource: "post", Action: "create", IsActive: true}}

	res, err := NewResolver(repo).Resolve(context.Background(), userID, communityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("expected pending, got %s", res.Status)
	}
	if len(res.CustomGrants) != 0 {
		t.Fatal("pending memberships must not expose grants")
	}
	if res.Tier() != StatusVisitor {
		t.Fatalf("expected pending to reduce to visitor tier, got %s", res.Tier())
	}
}

func TestResolveActiveBanIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	communityID := uuid.New()
	m := &Membership{
		ID:          uuid.New(),
		UserID:      userID,
		CommunityID: communityID,
		Status:      StatusBanned,
		BanExpiration: sql.NullTime{
			Time:  time.Now().Add(time.Hour),
			Valid: true,
		},
	}
	repo.memberships[repo.key(userID, communityID)] = m
	repo.grants[m.ID] = []Grant{{PermissionID: uuid.New(), Resource: "post", Action: "create", IsActive: true}}

	res, err := NewResolver(repo).Resolve(context.Background(), userID, communityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusBanned {
		t.Fatalf("expected banned, got %s", res.Status)
	}
	if len(res.CustomGrants) != 0 {
		t.Fatal("banned memberships must not expose grants")
	}
}

func TestResolvePermanentBan(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	communityID := uuid.New()
	repo.memberships[repo.key(userID, communityID)] = &Membership{
		ID:          uuid.New(),
		UserID:      userID,
		CommunityID: communityID,
		Status:      StatusBanned,
	}

	res, err := NewResolver(repo).Resolve(context.Background(), userID, communityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusBanned {
		t.Fatalf("expected a ban without expiration to be permanent, got %s", res.Status)
	}
}

func TestResolveExpiredBanRevertsToMember(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	communityID := uuid.New()
	m := &Membership{
		ID:          uuid.New(),
		UserID:      userID,
		CommunityID: communityID,
		Status:      StatusBanned,
		BanExpiration: sql.NullTime{
			Time:  time.Now().Add(-time.Hour),
			Valid: true,
		},
	}
	repo.memberships[repo.key(userID, communityID)] = m
	repo.grants[m.ID] = []Grant{{PermissionID: uuid.New(), Resource: "comment", Action: "create", IsActive: true}}

	res, err := NewResolver(repo).Resolve(context.Background(), userID, communityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusMember {
		t.Fatalf("expected expired ban to resolve as member, got %s", res.Status)
	}
	if len(res.CustomGrants) != 1 {
		t.Fatalf("expected grants restored after ban expiry, got %d", len(res.CustomGrants))
	}
}

func TestResolveModeratorKeepsGrants(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	communityID := uuid.New()
	m := &Membership{ID: uuid.New(), UserID: userID, CommunityID: communityID, Status: StatusModerator}
	repo.memberships[repo.key(userID, communityID)] = m
	repo.grants[m.ID] = []Grant{{PermissionID: uuid.New(), Resource: "post", Action: "delete_any", IsActive: true}}

	res, err := NewResolver(repo).Resolve(context.Background(), userID, communityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsModerator() {
		t.Fatal("expected moderator standing")
	}
	if len(res.CustomGrants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(res.CustomGrants))
	}
}
