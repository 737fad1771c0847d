package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookman/internal/authz"
	"github.com/hitoshi/bookman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Gate              *authz.Gate
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス（nil許容）
	Metrics MetricsRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 書籍
	BookService BookServiceInterface

	// 監視
	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler
}

// MetricsRecorder はルーターと認証ハンドラーが利用するメトリクス記録インターフェース。
type MetricsRecorder interface {
	AuthRecorder
	RecordHTTPStatus(statusCode int)
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (Session → Owner → RateLimit)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
// ログイン・登録はIPごとの専用レート制限がかかる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	authHandler.metrics = deps.Metrics
	bookHandler := NewBookHandler(deps.BookService)

	// --- 認証不要のルート ---

	if deps.HealthHandler != nil {
		r.Get("/health", deps.HealthHandler)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		// パスワード認証（総当たり対策のIPごとレート制限付き）
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)

		// OAuthフロー
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- セッションが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Gate))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 書籍詳細（リソース単位: セッションのみで閲覧可能）
		r.Get("/api/books/{id}", bookHandler.GetBook)

		// 所有者単位の書籍管理
		r.Route("/api/users/{username}/books", func(r chi.Router) {
			r.Use(middleware.NewOwnerMiddleware())

			r.Get("/", bookHandler.ListBooks)
			r.Post("/", bookHandler.CreateBook)
			r.Put("/{id}", bookHandler.UpdateBook)
			r.Delete("/{id}", bookHandler.DeleteBook)
		})
	})

	return r
}
