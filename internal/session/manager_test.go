package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// --- モック定義 ---

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByTokenFn   func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFn func(ctx context.Context, token string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByUsername(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

// --- compile-time interface checks ---
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)

const testSecret = "test-session-secret-32bytes-long!"

// --- Signer ---

// 署名付きCookie値の往復が成功することを検証
func TestSigner_SignAndVerify_RoundTrip(t *testing.T) {
	signer := NewSigner(testSecret)

	value := signer.Sign("abc123")
	if !strings.HasPrefix(value, "v1.") {
		t.Errorf("signed value = %q, want v1. prefix", value)
	}

	token, ok := signer.Verify(value)
	if !ok {
		t.Fatal("Verify() = false for a valid signed value")
	}
	if token != "abc123" {
		t.Errorf("token = %q, want %q", token, "abc123")
	}
}

// 改ざんされた値は検証に失敗することを検証
func TestSigner_Verify_RejectsTampering(t *testing.T) {
	signer := NewSigner(testSecret)
	value := signer.Sign("abc123")

	tests := []struct {
		name  string
		value string
	}{
		{"トークン改ざん", strings.Replace(value, "abc123", "abc124", 1)},
		{"署名改ざん", value[:len(value)-1] + "0"},
		{"バージョン不一致", strings.Replace(value, "v1.", "v2.", 1)},
		{"フォーマット不正", "not-a-signed-value"},
		{"空文字", ""},
		{"トークン欠落", "v1.." + strings.Split(value, ".")[2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := signer.Verify(tt.value); ok {
				t.Errorf("Verify(%q) = true, want false", tt.value)
			}
		})
	}
}

// 異なる秘密鍵で署名された値は検証に失敗することを検証
func TestSigner_Verify_RejectsDifferentSecret(t *testing.T) {
	value := NewSigner("secret-a").Sign("abc123")
	if _, ok := NewSigner("secret-b").Verify(value); ok {
		t.Error("Verify() = true across different secrets, want false")
	}
}

// --- Manager ---

// Createがセッションを永続化し、24時間の有効期限を設定することを検証
func TestManager_Create_PersistsSessionWithTTL(t *testing.T) {
	ctx := context.Background()

	var saved *model.Session
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			saved = session
			return nil
		},
	}

	m := NewManager(sessions, &mockUserRepo{}, testSecret, 0)
	user := &model.User{ID: "user-1", Username: "ann"}

	before := time.Now()
	session, cookieValue, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if saved == nil {
		t.Fatal("expected session to be persisted")
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", session.UserID, "user-1")
	}
	if len(session.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(session.Token))
	}

	wantExpiry := before.Add(DefaultTTL)
	if session.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || session.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", session.ExpiresAt, wantExpiry)
	}

	// Cookie値は署名付きでトークンに復元できる
	token, ok := NewSigner(testSecret).Verify(cookieValue)
	if !ok || token != session.Token {
		t.Errorf("cookie value does not round-trip to the session token")
	}
}

// 連続したCreateが異なるトークンを発行することを検証
func TestManager_Create_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&mockSessionRepo{}, &mockUserRepo{}, testSecret, 0)
	user := &model.User{ID: "user-1"}

	s1, _, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s2, _, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if s1.Token == s2.Token {
		t.Error("two sessions share the same token")
	}
}

// Resolveが有効なCookie値から紐付けユーザーを返すことを検証
func TestManager_Resolve_ValidCookie_ReturnsBoundUser(t *testing.T) {
	ctx := context.Background()

	sessions := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			if token != "tok-1" {
				return nil, nil
			}
			return &model.Session{Token: "tok-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Username: "ann"}, nil
		},
	}

	m := NewManager(sessions, users, testSecret, 0)
	cookieValue := NewSigner(testSecret).Sign("tok-1")

	user, err := m.Resolve(ctx, cookieValue)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if user == nil || user.Username != "ann" {
		t.Errorf("Resolve() user = %+v, want ann", user)
	}
}

// 未知・改ざん・期限切れのCookie値がすべて未認証（nil, nil）になることを検証
func TestManager_Resolve_FailsClosed(t *testing.T) {
	ctx := context.Background()

	// FindByTokenは期限切れセッションに対してnilを返す（リポジトリの契約）
	sessions := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			return nil, nil
		},
	}
	m := NewManager(sessions, &mockUserRepo{}, testSecret, 0)

	tests := []struct {
		name  string
		value string
	}{
		{"署名なしの生トークン", "raw-token-without-signature"},
		{"空文字", ""},
		{"未知のトークン", NewSigner(testSecret).Sign("unknown-token")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.Resolve(ctx, tt.value)
			if err != nil {
				t.Fatalf("Resolve() error = %v, want nil", err)
			}
			if user != nil {
				t.Errorf("Resolve() user = %+v, want nil", user)
			}
		})
	}
}

// セッションはあるがユーザーが消失している場合も未認証になることを検証
func TestManager_Resolve_MissingUser_Unauthenticated(t *testing.T) {
	ctx := context.Background()

	sessions := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			return &model.Session{Token: token, UserID: "ghost", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	m := NewManager(sessions, &mockUserRepo{}, testSecret, 0)

	user, err := m.Resolve(ctx, NewSigner(testSecret).Sign("tok-1"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if user != nil {
		t.Errorf("Resolve() user = %+v, want nil", user)
	}
}

// ストア障害のみがエラーとして伝播することを検証
func TestManager_Resolve_StoreFailure_ReturnsError(t *testing.T) {
	ctx := context.Background()

	sessions := &mockSessionRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	m := NewManager(sessions, &mockUserRepo{}, testSecret, 0)

	_, err := m.Resolve(ctx, NewSigner(testSecret).Sign("tok-1"))
	if err == nil {
		t.Fatal("expected error for store failure")
	}
}

// Destroyが冪等であることを検証
func TestManager_Destroy_Idempotent(t *testing.T) {
	ctx := context.Background()

	deleteCount := 0
	sessions := &mockSessionRepo{
		deleteByTokenFn: func(ctx context.Context, token string) error {
			deleteCount++
			return nil
		},
	}
	m := NewManager(sessions, &mockUserRepo{}, testSecret, 0)
	cookieValue := NewSigner(testSecret).Sign("tok-1")

	// 2回破棄してもどちらも成功する
	if err := m.Destroy(ctx, cookieValue); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := m.Destroy(ctx, cookieValue); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
	if deleteCount != 2 {
		t.Errorf("delete called %d times, want 2", deleteCount)
	}

	// 署名不正な値の破棄はストアに触れず成功する
	if err := m.Destroy(ctx, "garbage"); err != nil {
		t.Fatalf("Destroy(garbage) error = %v", err)
	}
	if deleteCount != 2 {
		t.Errorf("delete called %d times after garbage destroy, want 2", deleteCount)
	}
}
