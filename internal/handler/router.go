package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/devent/internal/metrics"
	"github.com/hitoshi/devent/internal/middleware"
)

// HealthChecker はデータストアの疎通確認インターフェース。
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 死活監視
	HealthChecker HealthChecker

	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// メトリクス
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService     AuthServiceInterface
	WithdrawService WithdrawServiceInterface
	AuthConfig      AuthHandlerConfig

	// イベント
	EventService EventServiceInterface
	MaxImageSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → CSRF → OptionalAuth → Logging → RateLimit(General)
//
// /health と /metrics はAPIミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// 死活監視（ゲート経由でストアの疎通も確認する）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.HealthChecker.CheckHealth(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス公開
	r.Handle("/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))

	authHandler := NewAuthHandler(deps.AuthService, deps.WithdrawService, deps.Metrics, deps.AuthConfig)
	eventHandler := NewEventHandler(deps.EventService, deps.Metrics, deps.MaxImageSize)

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewOptionalAuthMiddleware(deps.Authenticator))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// CSRFトークン配布
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 認証
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			// 認証が必要なルート
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireAuthMiddleware(deps.Authenticator))
				r.Get("/profile", authHandler.Profile)
				r.Delete("/account", authHandler.Withdraw)
			})
		})

		// イベント管理
		r.Route("/api/events", func(r chi.Router) {
			// 閲覧系は未認証でもアクセス可能
			r.Get("/", eventHandler.List)

			// 認証が必要なルート
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireAuthMiddleware(deps.Authenticator))

				// POST /api/events - イベント登録（登録専用レート制限を追加）
				r.With(deps.RateLimiter.EventRegistrationMiddleware()).Post("/", eventHandler.Create)

				// GET /api/events/my-events - 自分が作成したイベント一覧
				r.Get("/my-events", eventHandler.MyEvents)
			})

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)
				r.Get("/similar", eventHandler.Similar)
			})
		})
	})

	return r
}
