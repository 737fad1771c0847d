// Package authz はリクエスト時の認可判定を提供する。
// 判定は提示されたセッションCookie値のみから導出され、
// リクエスト横断の可変状態には一切依存しない。
package authz

import (
	"context"
	"fmt"

	"github.com/hitoshi/bookman/internal/model"
)

// SessionResolver はセッション解決に必要なインターフェース。
// session.Managerの部分集合として定義する。
type SessionResolver interface {
	Resolve(ctx context.Context, cookieValue string) (*model.User, error)
}

// Decision は認可判定の結果。
// AllowedがtrueのときのみUserが設定される。
type Decision struct {
	Allowed bool
	User    *model.User
}

// Denied は拒否判定を返す。
func Denied() Decision {
	return Decision{}
}

// Allowed は許可判定を返す。
func Allowed(user *model.User) Decision {
	return Decision{Allowed: true, User: user}
}

// Gate は保護ルートへのアクセス可否を判定する。
// 判定は保護対象データの取得より前に必ず実行される（ミドルウェア順序で保証）。
type Gate struct {
	sessions SessionResolver
}

// NewGate はGateを生成する。
func NewGate(sessions SessionResolver) *Gate {
	return &Gate{sessions: sessions}
}

// Authorize はセッションCookie値と要求された所有者usernameから認可を判定する。
// requestedOwnerが空文字の場合はリソーススコープのルートであり、
// 有効なセッションがあれば許可する。
// requestedOwnerが非空の場合は所有者スコープのルートであり、
// セッションのユーザーのusernameと完全一致する場合のみ許可する。
// エラーを返すのはセッションストア障害の場合のみで、その際も判定は拒否となる。
func (g *Gate) Authorize(ctx context.Context, cookieValue, requestedOwner string) (Decision, error) {
	user, err := g.sessions.Resolve(ctx, cookieValue)
	if err != nil {
		return Denied(), fmt.Errorf("failed to resolve session: %w", err)
	}
	if user == nil {
		return Denied(), nil
	}

	if requestedOwner != "" && !OwnsResource(user, requestedOwner) {
		return Denied(), nil
	}

	return Allowed(user), nil
}

// OwnsResource は所有者スコープの照合規則。
// usernameの完全一致（大文字小文字を区別、正規化なし）で判定する。
func OwnsResource(user *model.User, requestedOwner string) bool {
	return user != nil && user.Username == requestedOwner
}
