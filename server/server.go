// Package server exposes the gallery generator over HTTP (gin).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/preset"
	"ai_gallery_simulator/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options 控制 HTTP 层行为。零值可用，使用默认超时且不限流。
type Options struct {
	// RequestTimeout 单个生成请求的超时。
	RequestTimeout time.Duration
	CORSOrigins    []string
	// RateLimit 每 IP 每秒允许的生成请求数，<= 0 不限流。
	RateLimit float64
	Burst     int
}

const (
	defaultRequestTimeout = 3 * time.Minute
	sessionIdle           = 30 * time.Minute
	sweepInterval         = 10 * time.Minute
)

type Server struct {
	agent    *generator.Agent
	repo     *store.Repository
	presets  *preset.Catalog
	sessions *sessionStore
	limiter  *ipRateLimiter
	logger   *zap.Logger
	opts     Options
}

func New(agent *generator.Agent, repo *store.Repository, presets *preset.Catalog, logger *zap.Logger, opts Options) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if repo == nil {
		return nil, errors.New("repository required")
	}
	if presets == nil {
		return nil, errors.New("preset catalog required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		agent:   agent,
		repo:    repo,
		presets: presets,
		logger:  logger,
		opts:    opts,
	}
	// 进行中的请求不能被清出
	idle := max(sessionIdle, 2*opts.RequestTimeout)
	s.sessions = newSessionStore(agent, repo, logger, idle)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newIPRateLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(securityHeaders())
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.opts.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := s.rateLimit()
	api := r.Group("/api")
	{
		api.GET("/options", s.handleOptions)

		api.POST("/sessions", limited, s.handleSessionCreate)
		api.POST("/sessions/stream", limited, s.handleSessionStream)
		api.GET("/sessions/:id", s.handleSessionGet)
		api.POST("/sessions/:id/posts", limited, s.handlePostCreate)
		api.POST("/sessions/:id/posts/:postID/comments", limited, s.handleCommentCreate)
		api.POST("/sessions/:id/feedback", limited, s.handleFeedback)

		api.GET("/presets", s.handlePresetList)
		api.POST("/presets", s.handlePresetSave)
		api.DELETE("/presets/:id", s.handlePresetDelete)
	}
	return r
}

// Run 周期性清理空闲的 session 和限流器中的 IP，直到 ctx 结束。
func (s *Server) Run(ctx context.Context) error {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() {
	if n := s.sessions.sweep(); n > 0 {
		s.logger.Debug("idle sessions evicted", zap.Int("removed", n))
	}
	if s.limiter == nil {
		return
	}
	if n := s.limiter.sweep(); n > 0 {
		s.logger.Debug("rate limiter swept", zap.Int("removed", n))
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	if s.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rateLimitMiddleware(s.limiter)
}

// requestContext 给生成请求加超时；客户端断开时同样取消。
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
}
