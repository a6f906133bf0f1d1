package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"go.uber.org/zap"

	"github.com/wippyai/anyfile/container"
	"github.com/wippyai/anyfile/loader"
)

// Response headers set on every reply.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderEngineWarning = "X-Anyfile-Engine-Warning"
)

// DefaultMaxBodyBytes bounds request bodies when Config leaves it zero.
const DefaultMaxBodyBytes = 64 << 20

// Config configures a Server.
type Config struct {
	// Engine stages modules on extract. Nil skips staging.
	Engine loader.Engine
	// Logger defaults to the package logger.
	Logger *zap.Logger
	// MaxBodyBytes caps the container size; 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// StageTimeout bounds module staging per request; 0 means
	// loader.DefaultStageTimeout.
	StageTimeout time.Duration
	// Strict rejects trailing bytes after the metadata region.
	Strict bool
}

// Server exposes the loader operations over HTTP.
type Server struct {
	engine       loader.Engine
	logger       *zap.Logger
	maxBody      int64
	stageTimeout time.Duration
	strict       bool
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		engine:       cfg.Engine,
		logger:       cfg.Logger,
		maxBody:      cfg.MaxBodyBytes,
		stageTimeout: cfg.StageTimeout,
		strict:       cfg.Strict,
	}
	if s.logger == nil {
		s.logger = Logger()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.stageTimeout <= 0 {
		s.stageTimeout = loader.DefaultStageTimeout
	}
	return s
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/info", s.handleInfo)
	e.POST("/v1/extract", s.handleExtract)
	e.POST("/v1/run/:op", s.handleRun)
}

// Echo returns a configured echo instance with middleware and routes.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(s.requestID)
	s.Register(e)
	return e
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	e := s.Echo()
	s.logger.Info("starting server",
		zap.String("address", addr),
		zap.Int64("max_body_bytes", s.maxBody),
		zap.Duration("stage_timeout", s.stageTimeout),
		zap.Bool("strict", s.strict))
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = 10 * time.Second
			return nil
		},
	}
	return sc.Start(ctx, e)
}

// requestID tags the request and response with an id, reusing one sent by
// the client.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Response().Header().Set(HeaderRequestID, id)
		return next(c)
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(c *echo.Context) error {
	return s.dispatch(c, loader.OpInfo)
}

func (s *Server) handleExtract(c *echo.Context) error {
	return s.dispatch(c, loader.OpExtract)
}

func (s *Server) handleRun(c *echo.Context) error {
	op, err := loader.ParseOperation(c.Param("op"))
	if err != nil {
		return s.writeError(c, err)
	}
	return s.dispatch(c, op)
}

func (s *Server) dispatch(c *echo.Context, op loader.Operation) error {
	start := time.Now()
	log := s.logger.With(
		zap.String("request_id", requestIDOf(c)),
		zap.String("op", string(op)))

	body, err := s.readBody(c)
	if err != nil {
		log.Debug("request body rejected", zap.Error(err))
		return s.writeError(c, err)
	}

	ct, err := container.Deserialize(body, container.WithStrict(s.strict))
	if err != nil {
		log.Info("container rejected", zap.Int("size", len(body)), zap.Error(err))
		return s.writeError(c, err)
	}

	var warning error
	runner := loader.New(s.engine,
		loader.WithLogger(log),
		loader.WithStageTimeout(s.stageTimeout),
		loader.WithWarningHandler(func(err error) { warning = err }))

	out, err := runner.RunContainer(c.Request().Context(), ct, op)
	if err != nil {
		return s.writeError(c, err)
	}
	if warning != nil {
		c.Response().Header().Set(HeaderEngineWarning, warning.Error())
	}

	log.Info("request handled",
		zap.Int("size", len(body)),
		zap.Int("result_size", len(out)),
		zap.Bool("engine_warning", warning != nil),
		zap.Duration("elapsed", time.Since(start)))

	if op == loader.OpInfo {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, out)
	}
	if name, ok := ct.OriginalFilename(); ok {
		c.Response().Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, out)
}

// readBody reads at most maxBody bytes.
func (s *Server) readBody(c *echo.Context) ([]byte, error) {
	req := c.Request()
	if req.ContentLength > s.maxBody {
		return nil, errBodyTooLarge(s.maxBody)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(req.Body, s.maxBody+1)); err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(buf.Len()) > s.maxBody {
		return nil, errBodyTooLarge(s.maxBody)
	}
	return buf.Bytes(), nil
}

func requestIDOf(c *echo.Context) string {
	if id, ok := c.Get(HeaderRequestID).(string); ok {
		return id
	}
	return ""
}
