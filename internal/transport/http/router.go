package http

import (
	"net/http"

	"github.com/auth-sms-api/internal/application/challenge"
	codeapp "github.com/auth-sms-api/internal/application/code"
	"github.com/auth-sms-api/internal/application/credential"
	"github.com/auth-sms-api/internal/application/session"
	"github.com/auth-sms-api/internal/application/user"
	"github.com/auth-sms-api/internal/config"
	"github.com/auth-sms-api/internal/domain"
	"github.com/auth-sms-api/internal/transport/http/handler"
	appmiddleware "github.com/auth-sms-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 per IP. This is the transport brake;
	// the per-account code window lives in the code service.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	codeSvc := codeapp.NewService(deps.CodeRepo, codeapp.Config{
		Alphabet:    cfg.CodeAlphabet,
		Length:      cfg.CodeLength,
		TTL:         cfg.CodeTTL,
		WindowHours: cfg.RateLimitWindowHours,
		MaxRequests: cfg.RateLimitMaxRequests,
	})
	gate := credential.NewGate(codeSvc)
	challengeSvc := challenge.NewService(challenge.ServiceDeps{
		UserRepo:        deps.UserRepo,
		ChallengeRepo:   deps.ChallengeRepo,
		SessionRepo:     deps.SessionRepo,
		Codes:           codeSvc,
		Gate:            gate,
		SMSSender:       deps.SMSSender,
		JWTProvider:     deps.JWTProvider,
		SecretSize:      cfg.EscrowSecretSize,
		ChallengeTTL:    cfg.ChallengeTTL,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		Codes:           codeSvc,
		SMSSender:       deps.SMSSender,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})

	healthH := handler.NewHealthHandler()
	loginH := handler.NewLoginHandler(challengeSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes (no auth)
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", loginH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/login/code", loginH.SubmitCode)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)
			r.Post("/users/me/password", userH.ChangePassword)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
			})
		})
	})

	return r
}
