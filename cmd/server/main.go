package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/betbot/gausscdf/internal/metrics"
	"github.com/betbot/gausscdf/internal/resultstore"
	"github.com/betbot/gausscdf/internal/runstore"
	"github.com/betbot/gausscdf/internal/server"
	"github.com/betbot/gausscdf/pkg/config"
	"github.com/betbot/gausscdf/pkg/logger"
	"github.com/betbot/gausscdf/pkg/shutdown"
)

func main() {
	// .env 可选，不存在时直接用真实环境变量
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("GAUSSCDF_CONFIG"), "配置文件路径（yaml/json，可选）")
		listenAddr = flag.String("listen", "", "HTTP 监听地址，覆盖配置")
		dbPath     = flag.String("db", "", "SQLite 文件路径，覆盖配置")
		cacheDir   = flag.String("cache-dir", "", "Badger 结果存储目录，覆盖配置")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *cacheDir != "" {
		cfg.Server.CacheDir = *cacheDir
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		logger.Errorf("初始化日志失败: %v", err)
		os.Exit(1)
	}

	store, err := runstore.Open(cfg.DBPath)
	if err != nil {
		logger.Errorf("打开数据库失败: %v", err)
		os.Exit(1)
	}

	// 接口变量只在真正打开时赋值，避免 typed nil
	var results server.ResultStore
	var resultStore *resultstore.Store
	if cfg.Server.CacheDir != "" {
		if resultStore, err = resultstore.Open(resultstore.OpenOptions{Path: cfg.Server.CacheDir}); err != nil {
			logger.Errorf("打开结果存储失败: %v", err)
			os.Exit(1)
		}
		results = resultStore
	}

	srv := server.New(server.Config{
		CacheTTL:  cfg.Server.CacheTTL,
		MaxBatch:  cfg.Server.MaxBatch,
		Release:   cfg.Server.ReleaseMode,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, store, results)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if cfg.Server.DebugListen != "" {
		if _, err := metrics.StartAsync(ctx, cfg.Server.DebugListen); err != nil {
			logger.Warnf("debug 服务启动失败: %v", err)
		} else {
			logger.Infof("debug 服务监听 %s", cfg.Server.DebugListen)
		}
	}

	go func() {
		logger.Infof("gausscdf 服务监听 %s", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http 服务异常: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	mgr := shutdown.NewManager()
	mgr.OnShutdown("http", httpSrv.Shutdown)
	mgr.OnShutdown("cache", func(context.Context) error {
		srv.Close()
		return nil
	})
	mgr.OnShutdown("runstore", func(context.Context) error { return store.Close() })
	mgr.OnShutdown("resultstore", func(context.Context) error { return resultStore.Close() })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if failed := mgr.Shutdown(shutdownCtx); failed > 0 {
		os.Exit(1)
	}
	logger.Infof("服务已停止")
}
