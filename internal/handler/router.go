package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/middleware"
)

// HealthChecker はヘルスチェックエンドポイントが必要とするインターフェース。
// *sql.DBがこのインターフェースを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ブックマーク
	BookmarkService BookmarkServiceInterface
	TitlePreview    TitlePreviewInterface

	// 変更フィード（nilの場合は/watchエンドポイントを公開しない）
	WatchHandler *WatchHandler

	// ユーザー
	UserService UserServiceInterface

	// メトリクス（nilの場合は/metricsエンドポイントを公開しない）
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）、ヘルスチェック、メトリクスは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService, deps.TitlePreview)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・死活監視用）
	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// Prometheusメトリクス
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// CSRFトークン取得（ログインフォーム表示前に必要）
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ブックマーク管理
		r.Route("/api/bookmarks", func(r chi.Router) {
			r.Get("/", bookmarkHandler.ListBookmarks)
			// 書き込み系には変更操作専用レート制限を追加
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/", bookmarkHandler.CreateBookmark)

			// タイトルプレビュー（外部サイトへのフェッチを伴うため変更系と同じ制限）
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/preview", bookmarkHandler.PreviewTitle)

			// 変更フィード（WebSocket）
			if deps.WatchHandler != nil {
				r.Get("/watch", deps.WatchHandler.Watch)
			}

			r.Route("/{id}", func(r chi.Router) {
				r.With(deps.RateLimiter.MutationMiddleware()).Put("/", bookmarkHandler.UpdateBookmark)
				r.With(deps.RateLimiter.MutationMiddleware()).Delete("/", bookmarkHandler.DeleteBookmark)
			})
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// DB接続の死活を確認し、結果をJSONで返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	}
}
