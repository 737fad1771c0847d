package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/password"
	"github.com/hitoshi/bookman/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)

// mustHash はテスト用にパスワードをハッシュ化する。
func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

// --- LocalStrategy ---

// 未知のusernameがNotFoundになることを検証
func TestLocalStrategy_UnknownUsername_NotFound(t *testing.T) {
	users := &mockUserRepo{}
	s := NewLocalStrategy(users)

	outcome := s.ProveIdentity(context.Background(), LocalCredentials{Username: "ghost", Password: "x"})

	if outcome.Status != StatusNotFound {
		t.Errorf("Status = %v, want %v", outcome.Status, StatusNotFound)
	}
	if outcome.User != nil {
		t.Error("User should be nil for NotFound")
	}
}

// 正しいパスワードがAuthenticatedになることを検証
func TestLocalStrategy_CorrectPassword_Authenticated(t *testing.T) {
	hash := mustHash(t, "pw123")
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username != "ann" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Username: "ann", PasswordHash: hash}, nil
		},
	}
	s := NewLocalStrategy(users)

	outcome := s.ProveIdentity(context.Background(), LocalCredentials{Username: "ann", Password: "pw123"})

	if outcome.Status != StatusAuthenticated {
		t.Fatalf("Status = %v, want %v", outcome.Status, StatusAuthenticated)
	}
	if outcome.User == nil || outcome.User.ID != "user-1" {
		t.Errorf("User = %+v, want user-1", outcome.User)
	}
}

// 誤ったパスワードがInvalidCredentialsになることを検証
func TestLocalStrategy_WrongPassword_InvalidCredentials(t *testing.T) {
	hash := mustHash(t, "pw123")
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "ann", PasswordHash: hash}, nil
		},
	}
	s := NewLocalStrategy(users)

	outcome := s.ProveIdentity(context.Background(), LocalCredentials{Username: "ann", Password: "wrong"})

	if outcome.Status != StatusInvalidCredentials {
		t.Errorf("Status = %v, want %v", outcome.Status, StatusInvalidCredentials)
	}
}

// 連携専用アカウントにはパスワードでログインできないことを検証
func TestLocalStrategy_FederatedOnlyAccount_InvalidCredentials(t *testing.T) {
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "jane", PasswordHash: model.FederatedOnlyHash}, nil
		},
	}
	s := NewLocalStrategy(users)

	outcome := s.ProveIdentity(context.Background(), LocalCredentials{Username: "jane", Password: "anything"})

	if outcome.Status != StatusInvalidCredentials {
		t.Errorf("Status = %v, want %v", outcome.Status, StatusInvalidCredentials)
	}
}

// ストア障害がProviderFailureになることを検証
func TestLocalStrategy_StoreFailure_ProviderFailure(t *testing.T) {
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := NewLocalStrategy(users)

	outcome := s.ProveIdentity(context.Background(), LocalCredentials{Username: "ann", Password: "pw123"})

	if outcome.Status != StatusProviderFailure {
		t.Errorf("Status = %v, want %v", outcome.Status, StatusProviderFailure)
	}
	if outcome.Err == nil {
		t.Error("Err should be set for ProviderFailure")
	}
}

// usernameの照合が大文字小文字を区別することを検証
// （リポジトリに渡されるusernameが無変換であること）
func TestLocalStrategy_UsernameNotNormalized(t *testing.T) {
	var lookedUp string
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			lookedUp = username
			return nil, nil
		},
	}
	s := NewLocalStrategy(users)

	s.ProveIdentity(context.Background(), LocalCredentials{Username: "Ann", Password: "pw123"})

	if lookedUp != "Ann" {
		t.Errorf("looked up username = %q, want %q (no normalization)", lookedUp, "Ann")
	}
}

// --- FederatedStrategy ---

// 初回連携ログインがユーザーを1件だけ自動作成することを検証
func TestFederatedStrategy_FirstLogin_ProvisionsUser(t *testing.T) {
	var created []*model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = append(created, user)
			return nil
		},
	}
	s := NewFederatedStrategy(users)

	outcome := s.ProveIdentity(context.Background(), FederatedProfile{Email: "jane@x.com", DisplayName: "Jane Doe"})

	if outcome.Status != StatusAuthenticated {
		t.Fatalf("Status = %v, want %v", outcome.Status, StatusAuthenticated)
	}
	if len(created) != 1 {
		t.Fatalf("created %d users, want 1", len(created))
	}

	u := created[0]
	if u.Username != "jane" {
		t.Errorf("Username = %q, want %q", u.Username, "jane")
	}
	if u.Name != "Jane Doe" {
		t.Errorf("Name = %q, want %q", u.Name, "Jane Doe")
	}
	if u.PasswordHash != model.FederatedOnlyHash {
		t.Errorf("PasswordHash = %q, want sentinel", u.PasswordHash)
	}
	if u.ID == "" {
		t.Error("ID should be assigned")
	}
}

// 2回目の連携ログインが既存ユーザーを再利用することを検証
func TestFederatedStrategy_SecondLogin_ReusesUser(t *testing.T) {
	existing := &model.User{ID: "user-1", Username: "jane", PasswordHash: model.FederatedOnlyHash}
	createCalled := false
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username == "jane" {
				return existing, nil
			}
			return nil, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}
	s := NewFederatedStrategy(users)

	outcome := s.ProveIdentity(context.Background(), FederatedProfile{Email: "jane@x.com", DisplayName: "Jane Doe"})

	if outcome.Status != StatusAuthenticated {
		t.Fatalf("Status = %v, want %v", outcome.Status, StatusAuthenticated)
	}
	if outcome.User != existing {
		t.Error("expected the existing user to be reused")
	}
	if createCalled {
		t.Error("Create should not be called for an existing user")
	}
}

// 同一メールの並行初回ログインで一意制約違反が起きた場合、
// 再検索して既存ユーザーとして扱うことを検証
func TestFederatedStrategy_DuplicateRace_RefetchesExisting(t *testing.T) {
	winner := &model.User{ID: "user-1", Username: "jane", PasswordHash: model.FederatedOnlyHash}
	lookups := 0
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			lookups++
			if lookups == 1 {
				// 最初の検索時点では相手方の作成がまだ見えていない
				return nil, nil
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return fmt.Errorf("username %q: %w", user.Username, model.ErrDuplicateUsername)
		},
	}
	s := NewFederatedStrategy(users)

	outcome := s.ProveIdentity(context.Background(), FederatedProfile{Email: "jane@x.com", DisplayName: "Jane Doe"})

	if outcome.Status != StatusAuthenticated {
		t.Fatalf("Status = %v, want %v (err: %v)", outcome.Status, StatusAuthenticated, outcome.Err)
	}
	if outcome.User != winner {
		t.Error("expected the concurrently-created user to be reused")
	}
	if lookups != 2 {
		t.Errorf("lookups = %d, want 2", lookups)
	}
}

// 連携戦略がNotFound/InvalidCredentialsを返さないことを検証
// （ストア障害はProviderFailureになる）
func TestFederatedStrategy_StoreFailure_ProviderFailure(t *testing.T) {
	users := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := NewFederatedStrategy(users)

	outcome := s.ProveIdentity(context.Background(), FederatedProfile{Email: "jane@x.com", DisplayName: "Jane"})

	if outcome.Status != StatusProviderFailure {
		t.Errorf("Status = %v, want %v", outcome.Status, StatusProviderFailure)
	}
}

// --- DeriveUsername ---

// メールアドレスからのusername導出規則を検証
func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@x.com", "jane"},
		{"Jane@x.com", "Jane"}, // 小文字化しない
		{"a.b+c@example.com", "a.b+c"},
		{"multi@at@signs.com", "multi"}, // 最初の@まで
		{"no-at-sign", ""},
		{"@x.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DeriveUsername(tt.email); got != tt.want {
			t.Errorf("DeriveUsername(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
