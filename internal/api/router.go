// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"librastore/internal/accounts"
	"librastore/internal/cart"
	"librastore/internal/catalog"
	"librastore/internal/checkout"
	"librastore/internal/httpx"
	"librastore/internal/models"
	"librastore/internal/ratelimit"
	"librastore/internal/store"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Store    store.Store
	Catalog  catalog.Service
	Accounts accounts.Service
	Cart     cart.Service
	Checkout checkout.Service
	Logger   *zap.Logger
	// AuthRateLimit is the number of authenticate calls allowed per minute
	// and client address. Zero disables the limit.
	AuthRateLimit int
}

// NewRouter mounts every endpoint under /api, plus /health.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var authLimit func(http.Handler) http.Handler
	if d.AuthRateLimit > 0 {
		authLimit = ratelimit.PerMinute(d.AuthRateLimit).Middleware
	}

	clients := accounts.NewHandler(d.Accounts, models.RoleClient, authLimit, d.Logger)
	admins := accounts.NewHandler(d.Accounts, models.RoleAdmin, authLimit, d.Logger)
	carts := cart.NewHandler(d.Cart, d.Logger)

	r.Route("/api", func(r chi.Router) {
		catalog.NewHandler(d.Catalog, d.Logger).Routes(r)
		checkout.NewHandler(d.Checkout, d.Logger).Routes(r)
		r.Route("/clientes", func(r chi.Router) {
			clients.Routes(r)
			carts.Routes(r)
		})
		r.Route("/admins", admins.Routes)
		r.Delete("/test-reset", resetHandler(d.Store, d.Logger))
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

// resetHandler wipes every collection and restarts the counters.
func resetHandler(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Reset(r.Context()); err != nil {
			httpx.Error(w, logger, err)
			return
		}
		logger.Warn("store reset", zap.String("remote", r.RemoteAddr))
		httpx.JSON(w, http.StatusOK, httpx.OK)
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
