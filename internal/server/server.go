package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/config"
	"github.com/michaelbrown/playground/internal/events"
	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/workspace"
)

// Server is the HTTP server for the playground web API.
type Server struct {
	cfg         *config.Config
	store       storage.Store
	exec        piston.Executor
	publisher   events.Publisher
	logger      *zap.Logger
	workspaces  *WorkspaceManager
	allowOrigin func(string) bool
	upgrader    websocket.Upgrader
	router      chi.Router
	http        *http.Server
}

// New creates a new Server. A nil publisher disables progress fan-out.
func New(cfg *config.Config, store storage.Store, exec piston.Executor, publisher events.Publisher, logger *zap.Logger) *Server {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		exec:      exec,
		publisher: publisher,
		logger:    logger,
		router:    chi.NewRouter(),
	}
	s.workspaces = NewWorkspaceManager(s.newWorkspace)
	s.allowOrigin = originChecker(cfg.Server.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowOrigin(origin)
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) newWorkspace() *workspace.Workspace {
	id := uuid.New().String()
	r := runner.New(s.exec, s.cfg.RunMode(), s.logger.With(zap.String("workspace", id)))
	return workspace.New(id, r, workspace.NewBuffer(piston.DefaultLanguage, ""))
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.allowOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/languages", s.handleListLanguages)

		// Workspaces
		r.Post("/workspaces", s.handleCreateWorkspace)
		r.Get("/workspaces/{id}", s.handleGetWorkspace)
		r.Delete("/workspaces/{id}", s.handleDeleteWorkspace)
		r.Put("/workspaces/{id}/code", s.handleSetCode)
		r.Put("/workspaces/{id}/language", s.handleSetLanguage)

		// Test cases
		r.Post("/workspaces/{id}/cases", s.handleAddCase)
		r.Put("/workspaces/{id}/cases/{index}", s.handleUpdateCase)
		r.Delete("/workspaces/{id}/cases/{index}", s.handleRemoveCase)

		// Runs
		r.Post("/workspaces/{id}/run", s.handleRun)
		r.Get("/workspaces/{id}/ws", s.handleWebSocket)

		// Share links
		r.Post("/workspaces/{id}/share", s.handleCreateShare)
		r.Post("/share/decode", s.handleDecodeShare)
		r.Get("/shares", s.handleListShares)
		r.Get("/shares/{id}", s.handleGetShare)
		r.Get("/shares/{id}/export", s.handleExportShare)
		r.Delete("/shares/{id}", s.handleDeleteShare)
	})

	r.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request and records request metrics.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			observeRequest(r.Method, route, status)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// originChecker reports whether a browser origin may use the API. An
// empty list or "*" allows every origin.
func originChecker(allowed []string) func(string) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(origin string) bool {
		return allowAll || set[origin]
	}
}

// cors allows browser editors served from other origins to call the API.
func cors(allow func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allow(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info("playground server starting", zap.String("addr", "http://localhost"+addr))
	return s.http.ListenAndServe()
}

// Shutdown cancels in-flight runs and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.workspaces.CloseAll()

	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
