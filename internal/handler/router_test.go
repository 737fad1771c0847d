package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/bookman/internal/authz"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// routerResolver は"ann-cookie"を"ann"に解決するテスト用リゾルバ。
type routerResolver struct{}

func (routerResolver) Resolve(ctx context.Context, cookieValue string) (*model.User, error) {
	if cookieValue == "ann-cookie" {
		return &model.User{ID: "user-ann", Username: "ann"}, nil
	}
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		LoginRate:       rate.Limit(100),
		LoginBurst:      100,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Gate:              authz.NewGate(routerResolver{}),
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig(),
		BookService:       &mockBookService{},
		HealthHandler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
}

// ルーティングとミドルウェアチェーンの組み合わせをテーブルで検証
func TestNewRouter_RouteProtection(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		cookie     string
		wantStatus int
	}{
		{"ヘルスチェックは認証不要", http.MethodGet, "/health", "", http.StatusOK},
		{"OAuth開始は認証不要", http.MethodGet, "/auth/google/login", "", http.StatusTemporaryRedirect},
		{"書籍詳細はセッション必須", http.MethodGet, "/api/books/book-1", "", http.StatusUnauthorized},
		{"書籍詳細はセッションのみで閲覧可", http.MethodGet, "/api/books/book-1", "ann-cookie", http.StatusNotFound},
		{"自分の書籍一覧は閲覧可", http.MethodGet, "/api/users/ann/books", "ann-cookie", http.StatusOK},
		{"他人の書籍一覧は403", http.MethodGet, "/api/users/bob/books", "ann-cookie", http.StatusForbidden},
		{"書籍一覧もセッション必須", http.MethodGet, "/api/users/ann/books", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}

// セキュリティヘッダーが全ルートに付与されることを検証
func TestNewRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Result().Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
