// Package httpapi mounts the session engine and the account endpoints on a
// chi router.
package httpapi

import (
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Options configures NewRouter.
type Options struct {
	// BaseURL is the mount point of the API routes, "/v1" when empty.
	BaseURL     string
	CORSOrigins []string
	Logger      zerolog.Logger
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

type api struct {
	engine *goSession.Engine
}

// NewRouter returns the full HTTP surface for engine.
func NewRouter(engine *goSession.Engine, opts Options) http.Handler {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = "/v1"
	}
	a := &api{engine: engine}
	cfg := engine.Config()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.NewHandler(opts.Logger))
	r.Use(logging.RequestFieldsHandler)
	r.Use(logging.AccessHandler)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(opts.CORSOrigins, cfg))
	r.Use(requestMetadata)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed)
	})

	r.Get("/testlb", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("test response"))
	})
	r.Get("/healthz", a.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	direct := engine.DirectBearerPrefix()
	mountDirect := func(r chi.Router) {
		r.Use(engine.RequireUserOrBearer())
		r.Get("/me", a.me)
	}

	r.Route(base, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(engine.Middleware())
			r.Use(engine.RenewSignal())

			r.Post("/auth/login", a.login)
			r.Post("/auth/logout", a.logout)
			r.Get("/auth/renew", a.renew)
			r.Post("/auth/signin", a.signUp)

			r.Group(func(r chi.Router) {
				r.Use(engine.RequireUser())
				r.Get("/me", a.me)
				r.Post("/auth/sessions/revoke", a.revoke)
			})
		})

		if sub, ok := strings.CutPrefix(direct, base); ok && strings.HasPrefix(sub, "/") {
			r.Route(sub, mountDirect)
		}
	})
	if direct != "" && !strings.HasPrefix(direct, base+"/") {
		r.Route(direct, mountDirect)
	}

	return r
}

// corsHandler exposes the renew and expiry headers to browser clients.
func corsHandler(origins []string, cfg goSession.Config) func(http.Handler) http.Handler {
	exposed := []string{cfg.Renew.Header, cfg.Gate.ExpiredHeader}
	allowed := []string{"Authorization", "Content-Type", "X-Request-Id"}
	allowed = append(allowed, cfg.Renew.UpdatedAtHeaders...)

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   allowed,
		ExposedHeaders:   exposed,
		AllowCredentials: true,
	})
	return c.Handler
}

// requestMetadata copies the client address, user agent and request id into
// the context read by the engine's audit events and login throttle.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goSession.WithClientIP(r.Context(), logging.RemoteHost(r))
		ctx = goSession.WithUserAgent(ctx, r.UserAgent())
		ctx = goSession.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
