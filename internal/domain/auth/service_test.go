package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/user"
	"github.com/commune/commune-api/internal/pkg/jwt"
	"github.com/commune/commune-api/internal/pkg/password"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*user.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	f.users[u.ID] = u
	return nil
}
func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return f.users[id], nil
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}
func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}
func (f *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role user.Role) error {
	if u, ok := f.users[id]; ok {
		u.Role = role
	}
	return nil
}
func (f *fakeUserRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	if u, ok := f.users[id]; ok {
		u.IsBanned = banned
	}
	return nil
}
func (f *fakeUserRepo) AddCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	return nil
}
func (f *fakeUserRepo) RemoveCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeUserRepo) ListCustomPermissionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeUserRepo) HasCustomPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	return false, nil
}

func newTestService() (*Service, *fakeUserRepo, *jwt.Service) {
	repo := newFakeUserRepo()
	tokens := jwt.NewService("test-secret", 15*time.Minute, 24*time.Hour)
	return NewService(repo, tokens), repo, tokens
}

func TestRegisterIssuesTokensWithUserRole(t *testing.T) {
	svc, _, tokens := newTestService()

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "ayse",
		Email:    "ayse@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	claims, err := tokens.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.Role != string(user.RoleUser) {
		t.Fatalf("expected default user role in claims, got %s", claims.Role)
	}
	if claims.IsBanned {
		t.Fatal("new accounts must not carry a ban flag")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService()

	req := &RegisterRequest{Username: "ayse", Email: "ayse@example.com", Password: "correct-horse"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	req2 := &RegisterRequest{Username: "ayse", Email: "other@example.com", Password: "correct-horse"}
	if _, err := svc.Register(context.Background(), req2); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, repo, _ := newTestService()

	hash, err := password.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	u := &user.User{ID: uuid.New(), Username: "ayse", Email: "ayse@example.com", PasswordHash: hash, Role: user.RoleUser}
	repo.users[u.ID] = u

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "ayse@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "ayse@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.User == nil || resp.User.ID != u.ID {
		t.Fatal("expected user payload in login response")
	}
}

func TestLoginRejectsBannedUser(t *testing.T) {
	svc, repo, _ := newTestService()

	hash, _ := password.Hash("correct-horse")
	u := &user.User{ID: uuid.New(), Email: "banned@example.com", PasswordHash: hash, Role: user.RoleUser, IsBanned: true}
	repo.users[u.ID] = u

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "banned@example.com", Password: "correct-horse"}); err != ErrUserBanned {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	svc, repo, tokens := newTestService()

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "ayse",
		Email:    "ayse@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := repo.UpdateRole(context.Background(), resp.User.ID, user.RoleModerator); err != nil {
		t.Fatalf("role update failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	claims, err := tokens.ValidateAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("refreshed access token invalid: %v", err)
	}
	if claims.Role != string(user.RoleModerator) {
		t.Fatalf("expected refreshed claims to carry the new role, got %s", claims.Role)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Refresh(context.Background(), "not-a-token"); err == nil {
		t.Fatal("expected error for malformed refresh token")
	}
}
