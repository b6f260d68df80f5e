// Package server carries caplink requests and responses over HTTP. One
// session per client connection; the server serves many sessions
// concurrently while each session processes its requests strictly one at
// a time.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caplink-proto/caplink/internal/capability"
	"github.com/caplink-proto/caplink/internal/dispatch"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// SessionHeader names the header carrying the session ID on rpc calls.
const SessionHeader = "X-Caplink-Session"

// Config holds the transport settings.
type Config struct {
	Name         string        // server name reported in the handshake
	Version      string        // server version reported in the handshake
	Port         int           // listen port
	CORSOrigins  []string      // allowed CORS origins; empty disables CORS
	RateLimitRPS int           // per-IP steady-state rps; 0 disables limiting
	SessionTTL   time.Duration // idle session expiry; 0 disables expiry
	MaxBodyBytes int64         // request body cap; 0 means 1 MB
}

// Server is the caplink HTTP transport over one registry.
type Server struct {
	cfg        Config
	reg        *capability.Registry
	dispatcher *dispatch.Dispatcher
	sessions   *sessionStore
	logger     *zap.Logger
}

// New creates a server over reg. Registration into reg must be complete
// before Run is called; the registry is read-only from then on.
func New(cfg Config, reg *capability.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Name == "" {
		cfg.Name = "caplink"
	}
	return &Server{
		cfg:        cfg,
		reg:        reg,
		dispatcher: dispatch.New(reg, logger),
		sessions:   newSessionStore(cfg.SessionTTL),
		logger:     logger,
	}
}

// Router builds the gin engine with the full middleware chain and routes.
// Exposed separately from Run so tests can drive it with httptest.
func (s *Server) Router() *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", SessionHeader},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	})

	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		c.Next()
	})

	if s.cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitRPS*2))
	}

	router.Use(PrometheusMiddleware())
	router.Use(requestLogger(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.count()})
	})
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/v1")
	{
		v1.POST("/session", s.openSession)
		v1.DELETE("/session/:id", s.closeSession)
		v1.POST("/rpc", s.rpc)
	}
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepDone := make(chan struct{})
	go s.sweepLoop(ctx, sweepDone)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("caplink HTTP listening", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down caplink server")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	<-sweepDone
	return srv.Shutdown(shutCtx)
}

// sweepLoop expires idle sessions until ctx is cancelled.
func (s *Server) sweepLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	if s.cfg.SessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.SessionTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// openSession is the protocol handshake: it creates a session and
// returns the protocol capability metadata.
func (s *Server) openSession(c *gin.Context) {
	id := s.sessions.open()
	s.logger.Info("session opened", zap.String("session_id", id))
	c.JSON(http.StatusOK, wire.Handshake{
		SessionID:       id,
		ProtocolVersion: wire.ProtocolVersion,
		ServerInfo:      wire.ServerInfo{Name: s.cfg.Name, Version: s.cfg.Version},
		Capabilities:    s.reg.Counts(),
	})
}

func (s *Server) closeSession(c *gin.Context) {
	s.sessions.close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// rpc carries one envelope request. The session header must name an open
// session; a second request racing on the same session is refused,
// since caplink sessions are single-flight by contract.
func (s *Server) rpc(c *gin.Context) {
	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, wire.Fail(
			wire.Errorf(wire.ErrTransport, "missing %s header", SessionHeader)))
		return
	}
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, wire.Fail(
			wire.Errorf(wire.ErrTransport, "unknown or expired session %q", sessionID)))
		return
	}

	var req wire.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, wire.Fail(
			wire.Errorf(wire.ErrTransport, "malformed request envelope: %v", err)))
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, wire.Fail(
			wire.Errorf(wire.ErrTransport, "unknown request kind %q", req.Kind)))
		return
	}

	if !sess.inflight.TryLock() {
		c.JSON(http.StatusConflict, wire.Fail(
			wire.Errorf(wire.ErrTransport, "session %q already has a call in flight", sessionID)))
		return
	}
	defer sess.inflight.Unlock()

	// The request's context is cancelled when the client disconnects;
	// handlers observe that cooperatively.
	ctx := ContextWithRequestID(c.Request.Context(), uuid.NewString())
	resp := s.dispatcher.Dispatch(ctx, req)
	RecordDispatch(req.Kind, resp.OK)
	c.JSON(http.StatusOK, resp)
}

// requestLogger returns a gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
