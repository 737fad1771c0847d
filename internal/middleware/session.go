// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookman/internal/authz"
	"github.com/hitoshi/bookman/internal/model"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "bookman_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
// 認証済みの身元はこのコンテキスト経由でのみ伝搬し、
// プロセス全体の可変変数には決して保持しない。
var userContextKey = contextKey("user")

// NewSessionMiddleware はセッションCookieを認可ゲートで検証するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入する。
// 未認証リクエストには401を返す（ログイン画面への誘導はクライアント側の責務）。
func NewSessionMiddleware(gate *authz.Gate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			decision, err := gate.Authorize(r.Context(), cookie.Value, "")
			if err != nil {
				slog.Error("failed to authorize session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if !decision.Allowed {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, decision.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOwnerMiddleware はURLパラメータ{username}とセッションユーザーの
// 一致を要求するミドルウェアを返す。SessionMiddlewareの後に配置すること。
// 照合は大文字小文字を区別する完全一致（authz.OwnsResourceと同一の規則）。
// 他ユーザーのリソースへのアクセスは、保護対象データの取得前に403で拒否される。
func NewOwnerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			owner := chi.URLParam(r, "username")
			if !authz.OwnsResource(user, owner) {
				slog.Warn("owner-scoped access denied",
					slog.String("session_username", user.Username),
					slog.String("requested_owner", owner),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
