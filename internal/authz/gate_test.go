package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/bookman/internal/model"
)

// --- モック定義 ---

type mockSessionResolver struct {
	resolveFn func(ctx context.Context, cookieValue string) (*model.User, error)
}

func (m *mockSessionResolver) Resolve(ctx context.Context, cookieValue string) (*model.User, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, cookieValue)
	}
	return nil, nil
}

var _ SessionResolver = (*mockSessionResolver)(nil)

// bobSession は"bob"にバインドされた有効なセッションを模倣するリゾルバを返す。
func bobSession() *mockSessionResolver {
	return &mockSessionResolver{
		resolveFn: func(ctx context.Context, cookieValue string) (*model.User, error) {
			if cookieValue == "bob-cookie" {
				return &model.User{ID: "user-bob", Username: "bob"}, nil
			}
			return nil, nil
		},
	}
}

// 所有者スコープ: 自分のusernameへのアクセスは許可されることを検証
func TestAuthorize_OwnerScoped_SameUser_Allowed(t *testing.T) {
	gate := NewGate(bobSession())

	decision, err := gate.Authorize(context.Background(), "bob-cookie", "bob")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected Allowed for own resources")
	}
	if decision.User == nil || decision.User.Username != "bob" {
		t.Errorf("User = %+v, want bob", decision.User)
	}
}

// 所有者スコープ: bobの有効なセッションでもaliceのリソースは拒否されることを検証
func TestAuthorize_OwnerScoped_DifferentUser_Denied(t *testing.T) {
	gate := NewGate(bobSession())

	decision, err := gate.Authorize(context.Background(), "bob-cookie", "alice")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if decision.Allowed {
		t.Error("bob's session must not grant access to alice's resources")
	}
	if decision.User != nil {
		t.Error("User must be nil for a denied decision")
	}
}

// 所有者の照合が大文字小文字を区別することを検証
func TestAuthorize_OwnerScoped_CaseSensitive(t *testing.T) {
	gate := NewGate(bobSession())

	decision, err := gate.Authorize(context.Background(), "bob-cookie", "Bob")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if decision.Allowed {
		t.Error("username comparison must be case-sensitive")
	}
}

// リソーススコープ: 有効なセッションのみで許可されることを検証
func TestAuthorize_ResourceScoped_ValidSession_Allowed(t *testing.T) {
	gate := NewGate(bobSession())

	decision, err := gate.Authorize(context.Background(), "bob-cookie", "")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !decision.Allowed {
		t.Error("expected Allowed for resource-scoped route with valid session")
	}
}

// セッションなしはどのスコープでも拒否されることを検証
func TestAuthorize_NoSession_Denied(t *testing.T) {
	gate := NewGate(bobSession())

	for _, owner := range []string{"", "bob"} {
		decision, err := gate.Authorize(context.Background(), "unknown-cookie", owner)
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if decision.Allowed {
			t.Errorf("expected Denied without a session (owner=%q)", owner)
		}
	}
}

// ストア障害時はエラーと同時に拒否判定になることを検証
func TestAuthorize_StoreFailure_DeniedWithError(t *testing.T) {
	gate := NewGate(&mockSessionResolver{
		resolveFn: func(ctx context.Context, cookieValue string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	})

	decision, err := gate.Authorize(context.Background(), "any-cookie", "bob")
	if err == nil {
		t.Fatal("expected error for store failure")
	}
	if decision.Allowed {
		t.Error("decision must be Denied when resolution fails")
	}
}
