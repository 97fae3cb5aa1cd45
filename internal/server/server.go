// Package server 通过 HTTP 暴露 CDF 求值和一致性检查历史。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/betbot/gausscdf/internal/runstore"
	"github.com/betbot/gausscdf/pkg/cache"
	"github.com/betbot/gausscdf/pkg/gaussian"
	"github.com/betbot/gausscdf/pkg/ratelimit"
)

// DefaultMaxBatch 单次批量请求的条目上限
const DefaultMaxBatch = 1000

// Config 服务配置
type Config struct {
	CacheTTL time.Duration // 0 表示不缓存
	MaxBatch int
	Release  bool // gin release 模式

	// 每个客户端 IP 每秒允许的请求数，≤ 0 表示不限流
	RateLimit float64
	RateBurst int
}

// RunLister 一致性检查历史的只读视图
type RunLister interface {
	List(ctx context.Context, limit int) ([]runstore.Run, error)
}

// ResultStore 持久化的结果缓存，位于内存缓存之后
type ResultStore interface {
	Get(p gaussian.Params) (gaussian.Result, bool, error)
	Put(p gaussian.Params, res gaussian.Result) error
}

// Server HTTP 服务
type Server struct {
	cfg     Config
	runs    RunLister
	results ResultStore
	cache   *cache.InMemoryCache[string, gaussian.Result]
	limits  *ratelimit.Manager
}

// New 创建服务。runs 为 nil 时 /api/runs 返回空列表；results 可以为 nil。
func New(cfg Config, runs RunLister, results ResultStore) *Server {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	s := &Server{cfg: cfg, runs: runs, results: results}
	if cfg.CacheTTL > 0 {
		s.cache = cache.NewInMemoryCache[string, gaussian.Result](cfg.CacheTTL)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit) + 1
		}
		s.limits = ratelimit.NewManager(func() ratelimit.RateLimiter {
			return ratelimit.NewTokenBucket(burst, cfg.RateLimit)
		}, 10*time.Minute)
	}
	return s
}

// Close 释放缓存的后台清理
func (s *Server) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Router 组装路由
func (s *Server) Router() http.Handler {
	if s.cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	if s.limits != nil {
		api.Use(s.rateLimit())
	}
	api.GET("/cdf", s.handleCDF)
	api.GET("/erfc", s.handleErfc)
	api.POST("/batch", s.handleBatch)
	api.GET("/runs", s.handleRuns)
	api.GET("/stream", s.handleStream)
	return r
}

// rateLimit 按客户端 IP 限流，超限返回 429
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limits.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error:   KindRateLimited,
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}
