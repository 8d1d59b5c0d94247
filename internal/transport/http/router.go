package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-delivery-messaging/internal/config"
	"github.com/go-delivery-messaging/internal/transport/http/handler"
	appmiddleware "github.com/go-delivery-messaging/internal/transport/http/middleware"
	"github.com/go-delivery-messaging/internal/transport/ws"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work owned by the router, such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	subscribeRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.SubscribeRateLimit), cfg.SubscribeRateBurst)

	var conns handler.ConnectionCounter
	if deps.Hub != nil {
		conns = deps.Hub
	}
	healthH := handler.NewHealthHandler(conns)
	subH := handler.NewSubscriptionHandler(deps.Messaging)
	msgH := handler.NewMessageHandler(deps.Messaging)
	notifH := handler.NewNotificationHandler(deps.Messaging)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		if deps.Hub != nil {
			// LOGIN frames carry the token.
			r.Get("/ws", ws.NewHandler(deps.Hub, deps.JWTProvider, deps.Messaging, cfg.AllowedOrigins).ServeHTTP)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(subscribeRL.Limit).Post("/subscribe", subH.Subscribe)
			r.With(subscribeRL.Limit).Post("/unsubscribe", subH.Unsubscribe)
			r.Get("/messages", msgH.List)
			r.Patch("/messages/{id}", msgH.MarkAsRead)

			// Staff-only routes
			r.With(appmiddleware.RequireStaff).Post("/notifications", notifH.Create)
		})
	})

	return r
}
