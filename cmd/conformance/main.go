// conformance 用测试向量检查 NormalCDF 的精度，任何定义域内的记录超差即以 1 退出。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/betbot/gausscdf/internal/conformance"
	"github.com/betbot/gausscdf/internal/dashboard"
	"github.com/betbot/gausscdf/internal/runstore"
	"github.com/betbot/gausscdf/pkg/config"
	"github.com/betbot/gausscdf/pkg/logger"
	"github.com/betbot/gausscdf/pkg/vectors"
)

// 最多打印的失败条数
const maxPrintedFailures = 20

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("GAUSSCDF_CONFIG"), "配置文件路径（可选）")
		source     = flag.String("vectors", "", "向量文件路径或 http(s) 地址，覆盖配置")
		tolerance  = flag.String("tolerance", "", "容差（wei），覆盖配置")
		workers    = flag.Int("workers", 0, "worker 数量，覆盖配置")
		dbPath     = flag.String("db", "", "保存运行记录的 SQLite 文件（为空则不保存）")
		tui        = flag.Bool("tui", false, "在终端显示实时进度")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *source != "" {
		cfg.Conformance.Vectors = *source
	}
	if *tolerance != "" {
		cfg.Conformance.Tolerance = *tolerance
	}
	if *workers > 0 {
		cfg.Conformance.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	// TUI 占用终端，控制台日志关掉，只保留文件输出
	console := io.Writer(os.Stdout)
	if *tui {
		console = io.Discard
	}
	if err := logger.InitWithWriter(cfg.LoggerConfig(), console); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dash *dashboard.Dashboard
	if *tui {
		dash = dashboard.New("Conformance", cfg.Conformance.Vectors)
		dash.Start()
	}

	rep, err := run(ctx, cfg, *dbPath, dash)
	if dash != nil {
		dash.Finish(rep, err)
		dash.Wait(2 * time.Second)
	}
	if err != nil {
		logger.Errorf("一致性检查失败: %v", err)
		os.Exit(2)
	}

	fmt.Printf("total=%d passed=%d failed=%d rejected=%d max_error=%s wei tolerance=%s wei (%s)\n",
		rep.Total, rep.Passed, rep.Failed, rep.Rejected, rep.MaxError, rep.Tolerance, rep.Duration.Round(time.Millisecond))
	for i, f := range rep.Failures {
		if i == maxPrintedFailures {
			fmt.Printf("... %d more\n", len(rep.Failures)-i)
			break
		}
		fmt.Println(f)
	}
	if !rep.OK() {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dbPath string, dash *dashboard.Dashboard) (*conformance.Report, error) {
	tol, err := cfg.ToleranceWei()
	if err != nil {
		return nil, err
	}

	var (
		store *runstore.Store
		runID string
	)
	if dbPath != "" {
		if store, err = runstore.Open(dbPath); err != nil {
			return nil, errors.Wrap(err, "open run store")
		}
		defer store.Close()
		if runID, err = store.Start(ctx, cfg.Conformance.Vectors, tol.String()); err != nil {
			return nil, errors.Wrap(err, "record run start")
		}
	}

	recs, err := vectors.Load(ctx, cfg.Conformance.Vectors)
	var rep *conformance.Report
	if err == nil {
		logger.Infof("加载 %d 条向量: %s", len(recs), cfg.Conformance.Vectors)
		opts := conformance.Options{Tolerance: tol, Workers: cfg.Conformance.Workers}
		if dash != nil {
			opts.Progress = dash.Progress
		}
		rep, err = conformance.Run(ctx, recs, opts)
	}

	if store != nil {
		if ferr := store.Finish(context.Background(), runID, rep, err); ferr != nil {
			logger.Warnf("保存运行记录失败: %v", ferr)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "run vectors %s", cfg.Conformance.Vectors)
	}
	return rep, nil
}
