// Package api exposes the tutor over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/answers"
	"github.com/Devprenuer/ai-tutor/internal/hints"
	"github.com/Devprenuer/ai-tutor/internal/lessons"
	"github.com/Devprenuer/ai-tutor/internal/questions"
)

// Options configures the HTTP server.
type Options struct {
	Addr        string
	Mode        string // gin mode: debug, release or test
	CORSOrigins []string
	JWTSecret   string

	// RateLimit is the sustained per-user rate, in requests per second,
	// for endpoints that may call the model. 0 disables limiting.
	RateLimit float64
	RateBurst int

	ShutdownTimeout time.Duration
}

// Deps are the services the API serves.
type Deps struct {
	DB        *gorm.DB
	Questions *questions.Service
	Hints     *hints.Service
	Lessons   *lessons.Service
	Answers   *answers.Service
	Log       *zap.Logger

	// Registry collects HTTP metrics and backs /metrics. A fresh one is
	// used when nil.
	Registry *prometheus.Registry
}

// Server is the HTTP API.
type Server struct {
	opts      Options
	db        *gorm.DB
	questions *questions.Service
	hints     *hints.Service
	lessons   *lessons.Service
	answers   *answers.Service
	log       *zap.Logger
	engine    *gin.Engine
}

// New builds the server and its routes.
func New(opts Options, deps Deps) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		opts:      opts,
		db:        deps.DB,
		questions: deps.Questions,
		hints:     deps.Hints,
		lessons:   deps.Lessons,
		answers:   deps.Answers,
		log:       log.Named("api"),
	}
	s.engine = s.routes(reg)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(requestLogger(s.log))
	r.Use(newHTTPMetrics(reg).middleware())
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	var limiter *userLimiter
	if s.opts.RateLimit > 0 {
		limiter = newUserLimiter(s.opts.RateLimit, s.opts.RateBurst)
	}
	generates := rateLimit(limiter)

	api := r.Group("/api", s.requireAuth())
	api.GET("/user", s.user)
	api.GET("/question", generates, s.nextQuestion)
	api.GET("/question/:id/hint", generates, s.nextHint)
	api.POST("/question/:id/answer", s.answer)
	api.GET("/lessons", s.searchLessons)
	api.GET("/lesson/next", generates, s.nextLesson)
	api.GET("/lesson/:id", s.showLesson)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.opts.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
