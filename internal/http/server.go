package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wedplan/internal/budget"
	"wedplan/internal/core"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/middleware/ratelimit"
	"wedplan/internal/middleware/security"
	"wedplan/internal/middleware/trace"
	"wedplan/internal/reference"
	"wedplan/internal/report"
	"wedplan/internal/services"
	"wedplan/internal/sheets"
)

// Ledger is the application surface the handlers drive.
type Ledger interface {
	Reference() *reference.Data
	Settings(ctx context.Context, userID string) (core.BudgetSettings, error)
	SaveSettings(ctx context.Context, userID string, in services.SettingsInput) (core.BudgetSettings, error)
	Items(ctx context.Context, userID string) ([]core.BudgetItem, error)
	AddItem(ctx context.Context, userID string, in services.ItemInput) (core.BudgetItem, error)
	UpdateItem(ctx context.Context, userID, id string, in services.ItemInput) (core.BudgetItem, error)
	DeleteItem(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string) (core.Summary, error)
	Split(ctx context.Context, userID string, modes map[core.Category]budget.SplitMode, ratio int) (budget.SplitResult, error)
	Balances(ctx context.Context, userID string, window int) ([]budget.BalanceDue, error)
	Report(ctx context.Context, userID string) (report.Report, error)
}

var _ Ledger = (*services.LedgerService)(nil)

// Config holds the listener and request limits.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	MaxBodyBytes       int64
	ReadHeaderTimeout  time.Duration
}

const (
	defaultMaxBodyBytes      = 1 << 20
	defaultReadHeaderTimeout = 10 * time.Second
)

type Server struct {
	http.Server

	ledger  Ledger
	reports sheets.ReportWriter
	ready   func(context.Context) error
	metrics *metrics.Metrics
	logger  *log.Logger
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReportWriter enables POST /api/report/export.
func WithReportWriter(w sheets.ReportWriter) Option {
	return func(s *Server) { s.reports = w }
}

// WithReadiness sets the dependency check behind /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg Config, ledger Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:   ledger,
		started:  time.Now(),
		detector: security.NewDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}
	rlCfg.OnLimited = s.metrics.RateLimited
	s.limiter = ratelimit.NewLimiter(rlCfg)

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = security.MaxBodyMiddleware(cfg.MaxBodyBytes)(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = s.detector.Middleware(s.logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger, s.metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/taxonomy", s.handleTaxonomy)
	mux.HandleFunc("GET /api/settings", s.withUser(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withUser(s.handleSaveSettings))
	mux.HandleFunc("GET /api/items", s.withUser(s.handleListItems))
	mux.HandleFunc("POST /api/items", s.withUser(s.handleAddItem))
	mux.HandleFunc("PUT /api/items/{id}", s.withUser(s.handleUpdateItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.withUser(s.handleDeleteItem))
	mux.HandleFunc("GET /api/summary", s.withUser(s.handleSummary))
	mux.HandleFunc("POST /api/split", s.withUser(s.handleSplit))
	mux.HandleFunc("GET /api/balances", s.withUser(s.handleBalances))
	mux.HandleFunc("GET /api/report", s.withUser(s.handleReport))
	mux.HandleFunc("POST /api/report/export", s.withUser(s.handleExportReport))
}

// Shutdown gracefully shuts down the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
