package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/siroksgribogami/web-3/internal/artifacts"
	"github.com/siroksgribogami/web-3/internal/config"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"
	"golang.org/x/sync/semaphore"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	staticPrefix    = "/static"
	shutdownTimeout = 10 * time.Second
	// Multipart bodies carry boundaries and the other fields on top of the file.
	multipartSlack = 1 << 20
)

// Server hosts the HTTP front end.
type Server struct {
	cfg    config.Config
	store  *artifacts.Store
	sem    *semaphore.Weighted
	engine *gin.Engine
}

// New builds a server writing its artifacts to store.
func New(cfg config.Config, store *artifacts.Store) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("artifact store is required")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:   cfg,
		store: store,
		sem:   semaphore.NewWeighted(cfg.MaxConcurrent),
	}

	r := gin.New()
	middleware := []gin.HandlerFunc{
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
	}
	if cfg.Metrics {
		prometheus := ginprom.New(
			ginprom.Engine(r),
			ginprom.Path("/metrics"),
			ginprom.Ignore("/healthz"),
		)
		middleware = append(middleware, prometheus.Instrument())
	}
	r.Use(middleware...)

	if cfg.Debug {
		log.Println("WARNING: pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	if err := healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{artifactCheck{store: store}}); err != nil {
		return nil, fmt.Errorf("failed to initialize healthcheck: %w", err)
	}

	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = 8 << 20
	r.Static(staticPrefix, store.Dir())

	r.GET("/", s.handleIndex)
	r.POST("/", s.limitBody, s.handleProcess)
	api := r.Group("/api/v1")
	api.POST("/modulate", s.limitBody, s.handleAPIModulate)

	s.engine = r
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves HTTP until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s...", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server on %s: %w", s.cfg.HTTPAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Printf("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// limitBody caps the request body so oversized uploads fail while parsing.
func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+multipartSlack)
	c.Next()
}

// artifactCheck fails the health check when artifacts cannot be written.
type artifactCheck struct {
	store *artifacts.Store
}

func (c artifactCheck) Pass() bool   { return c.store.Writable() }
func (c artifactCheck) Name() string { return "artifacts" }
