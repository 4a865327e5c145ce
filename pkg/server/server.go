package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/lsmkv/pkg/lsm"
	"github.com/mnohosten/lsmkv/pkg/server/handlers"
)

// Server is the HTTP front end over a Table.
type Server struct {
	config    *Config
	table     *lsm.Table
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
}

// New opens the table at config.Directory and wires its HTTP routes.
func New(config *Config) (*Server, error) {
	tableConfig := lsm.Config{
		Directory:        config.Directory,
		Fanout:           config.Fanout,
		MemtableCapacity: config.MemtableCapacity,
	}
	table, err := lsm.Open(tableConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}

	srv := &Server{
		config:    config,
		table:     table,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	h := handlers.New(s.table)

	s.router.Get("/_health", h.Health(s.startTime))
	s.router.Post("/_flush", h.Flush)
	s.router.Get("/_range", h.RangeKeys)

	s.router.Route("/{key}", func(r chi.Router) {
		r.Put("/", h.PutKey)
		r.Get("/", h.GetKey)
		r.Delete("/", h.DeleteKey)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// Start serves HTTP until a shutdown signal arrives, then shuts down
// gracefully.
func (s *Server) Start() error {
	log.Printf("lsmkv server starting on %s:%d (directory %s)", s.config.Host, s.config.Port, s.config.Directory)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Printf("received signal: %v", sig)
		return s.Shutdown()
	}
}

// Table returns the underlying table, for tests.
func (s *Server) Table() *lsm.Table { return s.table }

// Shutdown gracefully stops the HTTP server and closes the table.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := s.table.Close(); err != nil {
		log.Printf("table close error: %v", err)
		return err
	}
	return nil
}
