package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pixelforge/internal/media"
	"github.com/hitoshi/pixelforge/internal/metrics"
	"github.com/hitoshi/pixelforge/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
// NewRouterから/auth配下にマウントされる。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	// OAuthフロー
	r.Get("/google/login", h.Login)
	r.Get("/google/callback", h.Callback)

	// セッション管理
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 保護ページの入口リンク。未認証アクセスはSignInURLへリダイレクトされる。
	SignInURL string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロジェクト
	ProjectService ProjectServiceInterface

	// フォルダ
	FolderService FolderServiceInterface

	// メディア
	Uploader      media.Uploader
	ImportFetcher ImportFetcher
	Thumbnailer   ThumbnailBuilder

	// ユーザー
	UserService UserServiceInterface

	// 観測
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//	→ (API配下) CSRF → Session → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはAPIミドルウェアチェーンの外に配置する。
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

	projectHandler := NewProjectHandler(deps.ProjectService, deps.Metrics)
	folderHandler := NewFolderHandler(deps.FolderService)
	uploadHandler := NewUploadHandler(deps.Uploader, deps.ImportFetcher, deps.Thumbnailer, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheusメトリクス
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// 認証ルート（OAuthフロー）
	r.Mount("/auth", SetupAuthRoutes(deps.AuthService, deps.AuthConfig))

	// CSRFトークン取得（セッション不要で発行する）
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 保護ページの入口リンク ---
	// 共有されたダッシュボード・エディタのURLをこのサーバーで受け、
	// 認証済みならフロントエンドへ転送する。未認証はサインインページへ
	// リダイレクトし、認証完了後に元のURLへ戻す。
	if deps.SignInURL != "" {
		pageAuth := middleware.NewPageAuthMiddleware(deps.SessionFinder, deps.SignInURL, []string{"/dashboard", "/editor"})
		forward := func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, deps.AuthConfig.BaseURL+r.URL.RequestURI(), http.StatusFound)
		}
		r.Group(func(r chi.Router) {
			r.Use(pageAuth)
			r.Get("/dashboard", forward)
			r.Get("/editor/{id}", forward)
		})
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロジェクト管理
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.ListProjects)
			r.Post("/", projectHandler.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.GetProject)
				r.Patch("/", projectHandler.UpdateProject)
				r.Delete("/", projectHandler.DeleteProject)
				r.Post("/export", projectHandler.ExportProject)
			})
		})

		// フォルダ管理
		r.Route("/api/folders", func(r chi.Router) {
			r.Get("/", folderHandler.ListFolders)
			r.Post("/", folderHandler.CreateFolder)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/projects", folderHandler.ListFolderProjects)
				r.Delete("/", folderHandler.DeleteFolder)
			})
		})

		// メディア（アップロード専用レート制限を追加）
		r.Route("/api/media", func(r chi.Router) {
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/upload", uploadHandler.Upload)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/import", uploadHandler.ImportFromURL)
		})

		// ユーザー管理
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/usage", userHandler.GetUsage)
			r.Get("/tools/{tool_id}/access", userHandler.CheckToolAccess)
			r.Delete("/", userHandler.Withdraw)
		})
	})

	return r
}
