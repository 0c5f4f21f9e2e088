// Package httpapi implements the External API Shim (SPEC_FULL §4.H): the
// HTTP surface through which flows are submitted, inspected, unblocked and
// retried. Routing follows go-chi/chi, the pack's lightweight router of
// choice; each handler passes any *orcherr.AppError to writeAppError, which
// renders the {status_code, message} envelope the original FastAPI exception
// handlers in src/orch/__init__.py produced, and the recoverer middleware
// renders a panic as a 500 in the same envelope.
package httpapi

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/advancer"
	"github.com/jordigilh/orch/internal/store"
	"github.com/jordigilh/orch/internal/template"
)

// version is reported by GET /. It has no build-info counterpart in this
// module (no embedded VCS metadata is wired in); a fixed string mirrors the
// original's distribution()-derived version closely enough for a health
// probe.
const version = "0.1.0"

// Server groups every dependency a handler needs.
type Server struct {
	registry *template.Registry
	store    *store.Store
	advancer *advancer.Advancer
	logger   *zap.Logger
}

// New builds a Server.
func New(registry *template.Registry, st *store.Store, adv *advancer.Advancer, logger *zap.Logger) *Server {
	return &Server{registry: registry, store: st, advancer: adv, logger: logger}
}

// Router assembles the chi router for this Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(s.logger))
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"content-type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/check", s.handleCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/flows", s.handleCreateFlow)
	r.Get("/flows", s.handleListFlows)
	r.Get("/flows/{flowID}", s.handleGetFlow)
	r.Post("/hooks/flow/{flowID}", s.handleUnblockFlow)
	r.Post("/retry/{flowID}", s.handleRetryFlow)

	return r
}

// recoverer converts a panicking handler into a 500 JSON error response
// instead of a crashed connection, logging the stack for diagnosis. The
// original's ASGI stack gave this behavior for free; chi leaves it opt-in.
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic handling request", zap.Any("panic", rec), zap.String("stack", string(debug.Stack())))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
