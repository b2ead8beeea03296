package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/auth"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/config"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/influxdb"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/logging"
	"github.com/openDAQ/openDAQ-sub004/internal/metrics"
	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
)

// gracefulShutdownTimeout bounds waiting for in-flight requests on Close.
const gracefulShutdownTimeout = 10 * time.Second

// HistoryReader reads recorded property values.
type HistoryReader interface {
	History(ctx context.Context, measurement, path string, since time.Time, limit int) ([]influxdb.Sample, error)
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server. Logger and Registry are
// required; the rest are optional.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Registry *registry.Registry
	Metrics  *metrics.Metrics
	Hub      *Hub
	History  HistoryReader
	Audit    audit.Repository
	Health   map[string]HealthChecker
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	registry *registry.Registry
	metrics  *metrics.Metrics
	hub      *Hub
	history  HistoryReader
	audit    audit.Repository
	health   map[string]HealthChecker
	verifier *auth.Verifier
	version  string

	server *http.Server
	cancel context.CancelFunc
}

// New creates a server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("object registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		registry: deps.Registry,
		metrics:  deps.Metrics,
		hub:      deps.Hub,
		history:  deps.History,
		audit:    deps.Audit,
		health:   deps.Health,
		version:  deps.Version,
	}
	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	if s.metrics != nil {
		s.hub.SetGauge(s.metrics.WebSocketClients)
	}
	s.hub.SetAuthorizer(s.canRead)
	if deps.Security.AuthEnabled {
		s.verifier = auth.NewVerifier(deps.Security.JWT.Secret, deps.Security.JWT.Issuer, deps.Security.JWT.Audience)
	}
	return s, nil
}

// canRead reports whether user may read the object with id. Events of
// unknown objects are not forwarded.
func (s *Server) canRead(user *permission.User, id string) bool {
	e, err := s.registry.Get(id)
	if err != nil {
		return false
	}
	return e.Object.Permissions().IsAuthorized(user, permission.Read)
}

// Hub returns the WebSocket hub, which the daemon registers as a
// core-event sink.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler { return s.buildRouter() }

// Start launches the listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close stops the hub and shuts the listener down gracefully.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server was started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
