package service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/cookie/internal/auth"
	"github.com/mmynk/cookie/internal/middleware"
	"github.com/mmynk/cookie/internal/storage"
)

// DefaultOTPTTL is how long an issued OTP stays usable.
const DefaultOTPTTL = 15 * time.Minute

// csrfCookieTTL bounds the lifetime of an XSRF-TOKEN cookie.
const csrfCookieTTL = 2 * time.Hour

// Config wires the backend's dependencies into a router.
type Config struct {
	Store         storage.Store
	Authenticator auth.Authenticator
	JWT           *auth.JWTManager

	// PublicURL is the base of join links encoded in QR codes.
	PublicURL string
	StoryTTL  time.Duration
	OTPTTL    time.Duration

	Logger *slog.Logger

	// Registry receives the HTTP metrics and backs /metrics. Nil disables both.
	Registry *prometheus.Registry
}

// NewRouter builds the HTTP handler serving the Cookie API.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	otpTTL := cfg.OTPTTL
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}

	authSvc := NewAuthService(cfg.Authenticator, cfg.JWT, cfg.Store, otpTTL, logger)
	groupSvc := NewGroupService(cfg.Store, cfg.PublicURL, logger)
	feedSvc := NewFeedService(cfg.Store, cfg.StoryTTL, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))
	if cfg.Registry != nil {
		r.Use(middleware.NewMetrics(cfg.Registry).Instrument)
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/sanctum/csrf-cookie", middleware.CSRFCookieHandler(csrfCookieTTL))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CSRF(cfg.JWT))

		r.Post("/register", authSvc.Register)
		r.Post("/login", authSvc.Login)

		// Password reset works with or without a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT))
			r.Post("/forget-password", authSvc.ForgetPassword)
			r.Post("/verify-forget-password", authSvc.VerifyForgetPassword)
			r.Post("/reset-password", authSvc.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWT))

			r.Get("/user", authSvc.CurrentUser)
			r.Post("/verify-otp", authSvc.VerifyOTP)

			r.Get("/groups", groupSvc.ListGroups)
			r.Post("/groups", groupSvc.CreateGroup)
			r.Post("/groups/posts", feedSvc.CreatePost)
			r.Get("/groups/{id}", groupSvc.GetGroup)
			r.Delete("/groups/{id}", groupSvc.DeleteGroup)
			r.Get("/groups/{id}/members", groupSvc.ListMembers)
			r.Post("/groups/{id}/toggle-sharing", groupSvc.ToggleSharing)
			r.Get("/groups/{id}/qr", groupSvc.QRCode)
			r.Get("/groups/{id}/posts", feedSvc.ListPosts)
			r.Get("/groups/{id}/stories", feedSvc.ListStories)
			r.Post("/join-group", groupSvc.JoinGroup)
			r.Post("/stories", feedSvc.CreateStory)
		})
	})

	return r
}
