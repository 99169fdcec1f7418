package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
	"github.com/MrEthical07/storefront/internal/logging"
	authmw "github.com/MrEthical07/storefront/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config shapes the router.
type Config struct {
	// Prefix is prepended to every route, e.g. "/api/v1".
	Prefix string

	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
}

// Deps are the services the handlers call. Engine and Catalog are required.
type Deps struct {
	Engine  *storefront.Engine
	Catalog *catalog.Service
	Logger  logging.Logger
	// Metrics, when set, is served at GET /metrics outside the prefix.
	Metrics http.Handler
}

type handlers struct {
	engine  *storefront.Engine
	catalog *catalog.Service
	log     logging.Logger
}

// NewRouter builds the full HTTP surface.
func NewRouter(cfg Config, deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}
	h := &handlers{engine: deps.Engine, catalog: deps.Catalog, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   orDefault(cfg.CORSAllowedMethods, []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   orDefault(cfg.CORSAllowedHeaders, []string{"Accept", "Content-Type", "X-Request-Id"}),
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(authmw.ClientIP)
	r.Use(authmw.AuthFilter(deps.Engine))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	api := func(r chi.Router) {
		r.Route("/auth", h.authRoutes)
		r.Route("/users", h.userRoutes)
		r.Route("/category", h.categoryRoutes)
		r.Route("/product", h.productRoutes)
	}
	if prefix := normalizePrefix(cfg.Prefix); prefix == "" {
		api(r)
	} else {
		r.Route(prefix, api)
	}
	return r
}

func normalizePrefix(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info(r.Context(), "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
