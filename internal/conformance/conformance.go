// Package conformance 把测试向量分发给多个 worker 求值，统计与期望值的偏差。
package conformance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/gausscdf/internal/metrics"
	"github.com/betbot/gausscdf/pkg/gaussian"
	"github.com/betbot/gausscdf/pkg/logger"
	"github.com/betbot/gausscdf/pkg/syncgroup"
	"github.com/betbot/gausscdf/pkg/vectors"
)

// Options 运行参数
type Options struct {
	Tolerance *big.Int // wei，nil 时为 0
	Workers   int      // ≤ 0 时取 GOMAXPROCS
	// Progress 每完成一条记录回调一次，会被多个 worker 并发调用
	Progress func(Progress)
}

// Progress 运行中的进度快照
type Progress struct {
	Done   int
	Total  int
	Failed int // 目前为止超差或算术失败的条数
}

// Failure 一条超差或算术失败的记录
type Failure struct {
	Line   int
	Record vectors.Record
	Got    *big.Int // 算术失败时为 nil
	Diff   *big.Int
	Err    error
}

func (f Failure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("line %d: %v", f.Line, f.Err)
	}
	return fmt.Sprintf("line %d: got=%s want=%s diff=%s", f.Line, f.Got, f.Record.Expected, f.Diff)
}

// Report 一次运行的汇总
type Report struct {
	Total    int
	Passed   int
	Failed   int
	Rejected int // 定义域之外的记录，不计入失败

	MaxError     *big.Int
	MaxErrorLine int
	Tolerance    *big.Int
	Duration     time.Duration
	Failures     []Failure // 按行号排序
}

// OK 没有任何失败
func (r *Report) OK() bool { return r.Failed == 0 }

type outcome struct {
	got      *big.Int
	err      error
	rejected bool
}

// failed 与汇总阶段的判定一致：算术失败或超差
func (o outcome) failed(expected, tol *big.Int) bool {
	if o.rejected {
		return false
	}
	if o.err != nil {
		return true
	}
	diff := new(big.Int).Sub(o.got, expected)
	return diff.CmpAbs(tol) > 0
}

func isDomainError(err error) bool {
	return errors.Is(err, gaussian.ErrInvalidSigma) ||
		errors.Is(err, gaussian.ErrInvalidMu) ||
		errors.Is(err, gaussian.ErrInvalidX)
}

// Run 对 recs 全部求值。ctx 取消时尽快停止并返回 ctx.Err()。
func Run(ctx context.Context, recs []vectors.Record, opts Options) (*Report, error) {
	tol := opts.Tolerance
	if tol == nil {
		tol = new(big.Int)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(recs) && len(recs) > 0 {
		workers = len(recs)
	}

	start := time.Now()
	results := make([]outcome, len(recs))
	jobs := make(chan int)
	var done, failed atomic.Int64

	var g syncgroup.SyncGroup
	g.AddWorkers(workers, func(int) {
		for i := range jobs {
			r := recs[i]
			got, err := gaussian.NormalCDF(r.X, r.Mu, r.Sigma)
			o := outcome{got: got, err: err, rejected: isDomainError(err)}
			results[i] = o
			if opts.Progress == nil {
				continue
			}
			if o.failed(r.Expected, tol) {
				failed.Add(1)
			}
			opts.Progress(Progress{Done: int(done.Add(1)), Total: len(recs), Failed: int(failed.Load())})
		}
	})
	g.Run()

feed:
	for i := range recs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &Report{
		Total:     len(recs),
		MaxError:  new(big.Int),
		Tolerance: new(big.Int).Set(tol),
	}
	for i, o := range results {
		r := recs[i]
		metrics.Evaluations.Add(1)
		switch {
		case o.rejected:
			rep.Rejected++
			continue
		case o.err != nil:
			metrics.EvaluationErrors.Add(1)
			rep.Failed++
			rep.Failures = append(rep.Failures, Failure{Line: r.Line, Record: r, Err: o.err})
			continue
		}

		diff := new(big.Int).Sub(o.got, r.Expected)
		diff.Abs(diff)
		if diff.Cmp(rep.MaxError) > 0 {
			rep.MaxError = diff
			rep.MaxErrorLine = r.Line
		}
		if diff.Cmp(tol) > 0 {
			rep.Failed++
			rep.Failures = append(rep.Failures, Failure{Line: r.Line, Record: r, Got: o.got, Diff: diff})
			continue
		}
		rep.Passed++
	}
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Line < rep.Failures[j].Line })
	rep.Duration = time.Since(start)

	metrics.ConformanceRuns.Add(1)
	metrics.ConformanceFailures.Add(int64(rep.Failed))
	metrics.ConformanceMaxError.Set(rep.MaxError.String())

	logger.WithFields(logrus.Fields{
		"total":    rep.Total,
		"passed":   rep.Passed,
		"failed":   rep.Failed,
		"rejected": rep.Rejected,
		"maxError": rep.MaxError.String(),
		"workers":  workers,
		"duration": rep.Duration,
	}).Info("一致性检查完成")
	return rep, nil
}
