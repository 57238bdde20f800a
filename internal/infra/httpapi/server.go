package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cf_solved_bot/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CycleSource reports the last finished monitor cycle.
type CycleSource interface {
	LastCycle() (app.CycleStats, bool)
}

// StatusDeps feeds the /status endpoint. Cycles may be nil when the monitor is disabled.
type StatusDeps struct {
	StartedAt time.Time
	Guilds    func() []string
	Cycles    CycleSource
}

func SetupRouter(deps StatusDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/status", func(c *gin.Context) {
		body := gin.H{
			"uptime_seconds": int64(time.Since(deps.StartedAt).Seconds()),
			"guilds":         len(deps.Guilds()),
			"last_cycle":     nil,
		}
		if deps.Cycles != nil {
			if stats, ok := deps.Cycles.LastCycle(); ok {
				body["last_cycle"] = stats
			}
		}
		c.JSON(http.StatusOK, body)
	})
	return r
}

// Server serves the health and status endpoints.
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

func NewServer(addr string, deps StatusDeps, logger *logrus.Entry) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           SetupRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Status server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Status server stopped unexpectedly")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
