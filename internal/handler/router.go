package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daiki/tsudoi/internal/metrics"
	"github.com/daiki/tsudoi/internal/middleware"
)

// HealthChecker はヘルスチェックでの死活確認に必要なインターフェース。
// *sql.DBが実装している。
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

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// イベント
	EventService      EventServiceInterface
	PublicEventFinder PublicEventFinder
	Location          *time.Location

	// 参加者・出席
	ParticipantService ParticipantServiceInterface
	BaseURL            string

	// 分析
	AnalyticsService AnalyticsServiceInterface

	// 通知
	NotificationLister NotificationLister

	// ユーザー
	UserService UserServiceInterface

	// 観測
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// フロントエンド配信
	Static *StaticHandler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Metrics
//	→ (認証グループのみ) Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）と公開ルート（/api/public/*、静的配信）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	// ステータスコードとレイテンシの記録（全ルートに効く）
	r.Use(middleware.NewMetricsMiddleware(collector))

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	eventHandler := NewEventHandler(deps.EventService, deps.PublicEventFinder, deps.Location)
	participantHandler := NewParticipantHandler(deps.ParticipantService, collector, deps.BaseURL)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService)
	notificationHandler := NewNotificationHandler(deps.NotificationLister)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// CSRFトークン取得（認証不要、フロントエンドが起動時に取得する）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 公開チェックインAPI
	r.Route("/api/public/events/{id}", func(r chi.Router) {
		r.Get("/", eventHandler.PublicEventInfo)

		// POST /api/public/events/{id}/checkin - IP単位のレート制限を追加
		r.With(deps.RateLimiter.PublicCheckinMiddleware()).Post("/checkin", participantHandler.PublicCheckIn)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// イベント管理
		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.Put("/", eventHandler.UpdateEvent)
				r.Delete("/", eventHandler.DeleteEvent)

				// 参加者管理
				r.Route("/participants", func(r chi.Router) {
					r.Get("/", participantHandler.List)
					r.Post("/", participantHandler.Invite)

					r.Route("/{pid}", func(r chi.Router) {
						r.Delete("/", participantHandler.Remove)
						r.Put("/status", participantHandler.UpdateStatus)
					})
				})

				// 出席記録
				r.Post("/attendance", participantHandler.CheckIn)
				r.Get("/attendance", participantHandler.AttendanceLog)
				r.Get("/qrcode", participantHandler.QRCode)
				r.Post("/scan", participantHandler.Scan)
			})
		})

		// 分析
		r.Get("/api/analytics", analyticsHandler.Summary)

		// 通知履歴
		r.Get("/api/notifications", notificationHandler.List)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Put("/me/settings", userHandler.UpdateSettings)
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	// --- フロントエンド配信 ---
	// ルートシェル・公開チェックインページ・静的アセット。
	// 未定義パスはStaticHandlerがSPAフォールバックと404を振り分ける。
	if deps.Static != nil {
		r.Get("/", deps.Static.ServeHTTP)
		r.Get("/attend/{eventID}", deps.Static.ServeHTTP)
		r.NotFound(deps.Static.ServeHTTP)
	}

	return r
}
