package permission

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/membership"
	"github.com/commune/commune-api/internal/domain/user"
)

type fakeRepo struct {
	permissions map[uuid.UUID]*Permission
	attachments map[uuid.UUID]map[string]bool
	deleted     []uuid.UUID
	lastAdded   []string
	lastRemoved []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		permissions: map[uuid.UUID]*Permission{},
		attachments: map[uuid.UUID]map[string]bool{},
	}
}

func (f *fakeRepo) Create(ctx context.Context, p *Permission) error {
	for _, existing := range f.permissions {
		if existing.Name == p.Name && existing.Scope == p.Scope && existing.CommunityID == p.CommunityID {
			return ErrAlreadyExists
		}
	}
	f.permissions[p.ID] = p
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Permission, error) {
	return f.permissions[id], nil
}

func (f *fakeRepo) GetByName(ctx context.Context, name string, scope Scope, communityID *uuid.UUID) (*Permission, error) {
	for _, p := range f.permissions {
		if p.Name != name || p.Scope != scope {
			continue
		}
		if communityID == nil && !p.CommunityID.Valid {
			return p, nil
		}
		if communityID != nil && p.CommunityID.Valid && p.CommunityID.UUID == *communityID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, filter *ListFilter) ([]*Permission, int, error) {
	var out []*Permission
	for _, p := range f.permissions {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Permission, addedRoles, removedRoles []string) error {
	if _, ok := f.permissions[p.ID]; !ok {
		return ErrNotFound
	}
	f.permissions[p.ID] = p
	f.lastAdded = addedRoles
	f.lastRemoved = removedRoles
	for _, r := range addedRoles {
		f.attach(p.ID, r)
	}
	for _, r := range removedRoles {
		delete(f.attachments[p.ID], r)
	}
	return nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.permissions[id]; !ok {
		return ErrNotFound
	}
	delete(f.attachments, id)
	delete(f.permissions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int, error) {
	n := 0
	for _, id := range ids {
		if p, ok := f.permissions[id]; ok {
			p.IsActive = active
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ExistAll(ctx context.Context, ids []uuid.UUID) (bool, error) {
	for _, id := range ids {
		if _, ok := f.permissions[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeRepo) AttachToRoles(ctx context.Context, permissionID uuid.UUID, roleNames []string) error {
	for _, r := range roleNames {
		f.attach(permissionID, r)
	}
	return nil
}

func (f *fakeRepo) attach(permissionID uuid.UUID, roleName string) {
	if f.attachments[permissionID] == nil {
		f.attachments[permissionID] = map[string]bool{}
	}
	f.attachments[permissionID][roleName] = true
}

func (f *fakeRepo) MatchesDefaultRole(ctx context.Context, resource, action, roleTag string, communityID *uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeRepo) HasAssignedPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	return false, nil
}

type fakeMembershipRepo struct {
	memberships map[string]*membership.Membership
	grants      map[uuid.UUID][]uuid.UUID
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		memberships: map[string]*membership.Membership{},
		grants:      map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeMembershipRepo) key(userID, communityID uuid.UUID) string {
	return userID.String() + ":" + communityID.String()
}

func (f *fakeMembershipRepo) Create(ctx context.Context, m *membership.Membership) error {
	f.memberships[f.key(m.UserID, m.CommunityID)] = m
	return nil
}

func (f *fakeMembershipRepo) Get(ctx context.Context, userID, communityID uuid.UUID) (*membership.Membership, error) {
	return f.memberships[f.key(userID, communityID)], nil
}

func (f *fakeMembershipRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status membership.Status) error {
	return nil
}

func (f *fakeMembershipRepo) UpdateBan(ctx context.Context, id uuid.UUID, reason sql.NullString, expiration sql.NullTime) error {
	return nil
}

func (f *fakeMembershipRepo) Delete(ctx context.Context, userID, communityID uuid.UUID) error {
	return nil
}

func (f *fakeMembershipRepo) ListByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]*membership.Membership, error) {
	return nil, nil
}

func (f *fakeMembershipRepo) AddGrant(ctx context.Context, membershipID, permissionID uuid.UUID) error {
	f.grants[membershipID] = append(f.grants[membershipID], permissionID)
	return nil
}

func (f *fakeMembershipRepo) RemoveGrant(ctx context.Context, membershipID, permissionID uuid.UUID) (bool, error) {
	ids := f.grants[membershipID]
	for i, id := range ids {
		if id == permissionID {
			f.grants[membershipID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembershipRepo) ListGrants(ctx context.Context, membershipID uuid.UUID) ([]membership.Grant, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users  map[uuid.UUID]*user.User
	custom map[uuid.UUID][]uuid.UUID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  map[uuid.UUID]*user.User{},
		custom: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	f.users[u.ID] = u
	return nil
}
func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return f.users[id], nil
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role user.Role) error {
	return nil
}
func (f *fakeUserRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error { return nil }
func (f *fakeUserRepo) AddCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	f.custom[userID] = append(f.custom[userID], permissionID)
	return nil
}
func (f *fakeUserRepo) RemoveCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	ids := f.custom[userID]
	for i, id := range ids {
		if id == permissionID {
			f.custom[userID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeUserRepo) ListCustomPermissionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.custom[userID], nil
}
func (f *fakeUserRepo) HasCustomPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	return false, nil
}

type serviceHarness struct {
	repo        *fakeRepo
	memberships *fakeMembershipRepo
	users       *fakeUserRepo
	service     *Service
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		repo:        newFakeRepo(),
		memberships: newFakeMembershipRepo(),
		users:       newFakeUserRepo(),
	}
	svc, err := NewService(h.repo, h.memberships, h.users, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	h.service = svc
	return h
}

func (h *serviceHarness) addUser() uuid.UUID {
	id := uuid.New()
	h.users.users[id] = &user.User{ID: id, Role: user.RoleUser}
	return id
}

func TestCreateValidatesScopePairing(t *testing.T) {
	h := newServiceHarness(t)
	communityID := uuid.New()

	_, err := h.service.Create(context.Background(), &CreateRequest{
		Name:     "Topluluk Yönetimi",
		Type:     string(TypeCustom),
		Scope:    string(ScopeSubreddit),
		Resource: ResourcePost,
		Action:   "create",
	})
	if err != ErrScopeRequiresCommunity {
		t.Fatalf("expected ErrScopeRequiresCommunity, got %v", err)
	}

	_, err = h.service.Create(context.Background(), &CreateRequest{
		Name:        "Gönderi Okuma",
		Type:        string(TypeCore),
		Scope:       string(ScopeSite),
		Resource:    ResourcePost,
		Action:      "read",
		CommunityID: &communityID,
	})
	if err != ErrSiteScopeWithCommunity {
		t.Fatalf("expected ErrSiteScopeWithCommunity, got %v", err)
	}
}

func TestCreateRejectsDuplicateInScope(t *testing.T) {
	h := newServiceHarness(t)

	req := &CreateRequest{
		Name:     "Gönderi Oluşturma",
		Type:     string(TypeCore),
		Scope:    string(ScopeSite),
		Resource: ResourcePost,
		Action:   "create",
	}
	if _, err := h.service.Create(context.Background(), req); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := h.service.Create(context.Background(), req); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// The same name in another community's scope is fine
	communityID := uuid.New()
	sub := *req
	sub.Scope = string(ScopeSubreddit)
	sub.CommunityID = &communityID
	if _, err := h.service.Create(context.Background(), &sub); err != nil {
		t.Fatalf("expected distinct scope to allow the name, got %v", err)
	}
}

func TestCreateAttachesDefaultRoles(t *testing.T) {
	h := newServiceHarness(t)

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:         "Medya Yükleme",
		Type:         string(TypeCore),
		Scope:        string(ScopeSite),
		Resource:     ResourceMedia,
		Action:       "create",
		DefaultRoles: []string{"user", "moderator"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !h.repo.attachments[p.ID]["user"] || !h.repo.attachments[p.ID]["moderator"] {
		t.Fatal("expected permission pushed into its default roles")
	}
}

func TestAssignSiteScopeTogglesUserGrant(t *testing.T) {
	h := newServiceHarness(t)
	userID := h.addUser()

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:     "Kullanıcı Yönetimi",
		Type:     string(TypeCustom),
		Scope:    string(ScopeSite),
		Resource: ResourceUser,
		Action:   "manage_any",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	granted := true
	if err := h.service.AssignUserPermission(context.Background(), userID, &AssignRequest{
		PermissionID: p.ID,
		Granted:      &granted,
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if len(h.users.custom[userID]) != 1 {
		t.Fatalf("expected 1 custom grant, got %d", len(h.users.custom[userID]))
	}

	granted = false
	if err := h.service.AssignUserPermission(context.Background(), userID, &AssignRequest{
		PermissionID: p.ID,
		Granted:      &granted,
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(h.users.custom[userID]) != 0 {
		t.Fatalf("expected custom grant removed, got %d", len(h.users.custom[userID]))
	}
}

func TestAssignSubredditGrantCreatesMembership(t *testing.T) {
	h := newServiceHarness(t)
	userID := h.addUser()
	communityID := uuid.New()

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:        "Sabitleme",
		Type:        string(TypeCustom),
		Scope:       string(ScopeSubreddit),
		Resource:    ResourcePost,
		Action:      "manage_any",
		CommunityID: &communityID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	granted := true
	if err := h.service.AssignUserPermission(context.Background(), userID, &AssignRequest{
		PermissionID: p.ID,
		Granted:      &granted,
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	m, _ := h.memberships.Get(context.Background(), userID, communityID)
	if m == nil {
		t.Fatal("expected membership auto-created for grant")
	}
	if m.Status != membership.StatusMember {
		t.Fatalf("expected member status, got %s", m.Status)
	}
	if len(h.memberships.grants[m.ID]) != 1 {
		t.Fatalf("expected grant attached, got %d", len(h.memberships.grants[m.ID]))
	}
}

func TestRevokeWithoutMembershipFails(t *testing.T) {
	h := newServiceHarness(t)
	userID := h.addUser()
	communityID := uuid.New()

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:        "Yorum Silme",
		Type:        string(TypeCustom),
		Scope:       string(ScopeSubreddit),
		Resource:    ResourceComment,
		Action:      "delete_any",
		CommunityID: &communityID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	granted := false
	err = h.service.AssignUserPermission(context.Background(), userID, &AssignRequest{
		PermissionID: p.ID,
		Granted:      &granted,
	})
	if err != ErrMembershipNotFound {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
}

func TestAssignRejectsCommunityMismatch(t *testing.T) {
	h := newServiceHarness(t)
	userID := h.addUser()
	communityID := uuid.New()
	otherID := uuid.New()

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:        "Etiket Yönetimi",
		Type:        string(TypeCustom),
		Scope:       string(ScopeSubreddit),
		Resource:    ResourceSubreddit,
		Action:      "manage_any",
		CommunityID: &communityID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	granted := true
	err = h.service.AssignUserPermission(context.Background(), userID, &AssignRequest{
		PermissionID: p.ID,
		CommunityID:  &otherID,
		Granted:      &granted,
	})
	if err != ErrCommunityMismatch {
		t.Fatalf("expected ErrCommunityMismatch, got %v", err)
	}
}

func TestBatchOperationRejectsUnknownOp(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.BatchOperation(context.Background(), &BatchRequest{
		Operation:   "purge",
		Permissions: []uuid.UUID{uuid.New()},
	})
	if err != ErrInvalidBatchOp {
		t.Fatalf("expected ErrInvalidBatchOp, got %v", err)
	}
}

func TestBatchActivateCountsAffected(t *testing.T) {
	h := newServiceHarness(t)

	var ids []uuid.UUID
	for _, name := range []string{"Bir", "İki"} {
		p, err := h.service.Create(context.Background(), &CreateRequest{
			Name:     name,
			Type:     string(TypeCustom),
			Scope:    string(ScopeSite),
			Resource: ResourcePost,
			Action:   "read",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	affected, err := h.service.BatchOperation(context.Background(), &BatchRequest{
		Operation:   "deactivate",
		Permissions: append(ids, uuid.New()),
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected, got %d", affected)
	}
	for _, id := range ids {
		if h.repo.permissions[id].IsActive {
			t.Fatal("expected permission deactivated")
		}
	}
}

func TestBatchDeleteUnlinksBeforeRemoval(t *testing.T) {
	h := newServiceHarness(t)

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:         "Silinecek",
		Type:         string(TypeCustom),
		Scope:        string(ScopeSite),
		Resource:     ResourcePost,
		Action:       "read",
		DefaultRoles: []string{"user"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	affected, err := h.service.BatchOperation(context.Background(), &BatchRequest{
		Operation:   "delete",
		Permissions: []uuid.UUID{p.ID},
	})
	if err != nil {
		t.Fatalf("batch delete failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected, got %d", affected)
	}
	if len(h.repo.attachments[p.ID]) != 0 {
		t.Fatal("expected role links removed with the permission")
	}
}

func TestUpdateSynchronizesDefaultRoles(t *testing.T) {
	h := newServiceHarness(t)

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:         "Yorum Yazma",
		Type:         string(TypeCore),
		Scope:        string(ScopeSite),
		Resource:     ResourceComment,
		Action:       "create",
		DefaultRoles: []string{"user", "moderator"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	roles := []string{"moderator", "admin"}
	updated, err := h.service.Update(context.Background(), p.ID, &UpdateRequest{
		DefaultRoles: &roles,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(h.repo.lastAdded) != 1 || h.repo.lastAdded[0] != "admin" {
		t.Fatalf("expected added [admin], got %v", h.repo.lastAdded)
	}
	if len(h.repo.lastRemoved) != 1 || h.repo.lastRemoved[0] != "user" {
		t.Fatalf("expected removed [user], got %v", h.repo.lastRemoved)
	}

	links := h.repo.attachments[p.ID]
	if !links["moderator"] || !links["admin"] {
		t.Fatalf("expected moderator and admin linked, got %v", links)
	}
	if links["user"] {
		t.Fatal("expected user link removed")
	}
	if len(updated.DefaultRoles) != 2 {
		t.Fatalf("expected 2 default roles, got %v", updated.DefaultRoles)
	}
}

func TestUpdateWithoutRolesLeavesLinksAlone(t *testing.T) {
	h := newServiceHarness(t)

	p, err := h.service.Create(context.Background(), &CreateRequest{
		Name:         "Gönderi Okuma",
		Type:         string(TypeCore),
		Scope:        string(ScopeSite),
		Resource:     ResourcePost,
		Action:       "read",
		DefaultRoles: []string{"user"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name := "Gönderi Görüntüleme"
	if _, err := h.service.Update(context.Background(), p.ID, &UpdateRequest{Name: &name}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if h.repo.lastAdded != nil || h.repo.lastRemoved != nil {
		t.Fatalf("expected no role diff, got added=%v removed=%v", h.repo.lastAdded, h.repo.lastRemoved)
	}
	if !h.repo.attachments[p.ID]["user"] {
		t.Fatal("expected user link kept")
	}
}

func TestBatchUpdateRolesRelinks(t *testing.T) {
	h := newServiceHarness(t)

	var ids []uuid.UUID
	for _, name := range []string{"Oylama", "Paylaşım"} {
		p, err := h.service.Create(context.Background(), &CreateRequest{
			Name:         name,
			Type:         string(TypeCustom),
			Scope:        string(ScopeSite),
			Resource:     ResourcePost,
			Action:       "vote",
			DefaultRoles: []string{"user"},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	affected, err := h.service.BatchOperation(context.Background(), &BatchRequest{
		Operation:    "update_roles",
		Permissions:  append(ids, uuid.New()),
		DefaultRoles: []string{"moderator"},
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected, got %d", affected)
	}

	for _, id := range ids {
		if got := []string(h.repo.permissions[id].DefaultRoles); len(got) != 1 || got[0] != "moderator" {
			t.Fatalf("expected default roles [moderator], got %v", got)
		}
		links := h.repo.attachments[id]
		if !links["moderator"] || links["user"] {
			t.Fatalf("expected relink to moderator only, got %v", links)
		}
	}
}
