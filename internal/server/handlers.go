package server

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gausscdf/internal/metrics"
	"github.com/betbot/gausscdf/pkg/gaussian"
	"github.com/betbot/gausscdf/pkg/logger"
	"github.com/betbot/gausscdf/pkg/wad"
)

// 错误类别，放在响应体的 error 字段
const (
	KindInvalidSigma       = "invalid_sigma"
	KindInvalidMu          = "invalid_mu"
	KindInvalidX           = "invalid_x"
	KindArithmeticOverflow = "arithmetic_overflow"
	KindDivisionByZero     = "division_by_zero"
	KindBadRequest         = "bad_request"
	KindRateLimited        = "rate_limited"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, gaussian.ErrInvalidSigma):
		return KindInvalidSigma
	case errors.Is(err, gaussian.ErrInvalidMu):
		return KindInvalidMu
	case errors.Is(err, gaussian.ErrInvalidX):
		return KindInvalidX
	case errors.Is(err, wad.ErrArithmeticOverflow):
		return KindArithmeticOverflow
	case errors.Is(err, wad.ErrDivisionByZero):
		return KindDivisionByZero
	default:
		return KindBadRequest
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errorKind(err), Message: err.Error()})
}

// evalRequest 一组原始输入。unit=decimal 时按人类单位解析（"3" 表示 3.0），否则是 WAD 整数字面量。
type evalRequest struct {
	X     string `json:"x"`
	Mu    string `json:"mu"`
	Sigma string `json:"sigma"`
}

func parseValue(name, raw string, decimalUnit bool) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: missing %s", errBadRequest, name)
	}
	var (
		v   *big.Int
		err error
	)
	if decimalUnit {
		v, err = wad.FromString(raw)
	} else {
		v, err = wad.ParseFixed(raw)
	}
	if err != nil {
		if errors.Is(err, wad.ErrArithmeticOverflow) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return v, nil
}

func (r evalRequest) params(decimalUnit bool) (gaussian.Params, error) {
	x, err := parseValue("x", r.X, decimalUnit)
	if err != nil {
		return gaussian.Params{}, err
	}
	mu, err := parseValue("mu", r.Mu, decimalUnit)
	if err != nil {
		return gaussian.Params{}, err
	}
	sigma, err := parseValue("sigma", r.Sigma, decimalUnit)
	if err != nil {
		return gaussian.Params{}, err
	}
	return gaussian.Params{X: x, Mu: mu, Sigma: sigma}, nil
}

type cdfResponse struct {
	X          string `json:"x"`
	Mu         string `json:"mu"`
	Sigma      string `json:"sigma"`
	Z          string `json:"z,omitempty"`
	Saturated  bool   `json:"saturated"`
	Erfc       string `json:"erfc"`
	CDF        string `json:"cdf"`
	CDFDecimal string `json:"cdf_decimal"`
}

func newCDFResponse(p gaussian.Params, res gaussian.Result) cdfResponse {
	out := cdfResponse{
		X:          p.X.String(),
		Mu:         p.Mu.String(),
		Sigma:      p.Sigma.String(),
		Saturated:  res.Saturated,
		Erfc:       res.Erfc.String(),
		CDF:        res.CDF.String(),
		CDFDecimal: wad.Format(res.CDF),
	}
	if res.Z != nil {
		out.Z = res.Z.String()
	}
	return out
}

// evaluate 带缓存的求值：内存缓存 → 持久化存储 → 计算。
// Result 里的 *big.Int 只读，可以在请求间共享。
func (s *Server) evaluate(p gaussian.Params) (gaussian.Result, error) {
	var key string
	if s.cache != nil && p.X != nil && p.Mu != nil && p.Sigma != nil {
		key = p.X.String() + "|" + p.Mu.String() + "|" + p.Sigma.String()
		if res, ok := s.cache.Get(key); ok {
			metrics.CacheHits.Add(1)
			return res, nil
		}
		metrics.CacheMisses.Add(1)
	}

	if err := p.Validate(); err != nil {
		metrics.EvaluationErrors.Add(1)
		return gaussian.Result{}, err
	}

	if s.results != nil {
		res, ok, err := s.results.Get(p)
		if err != nil {
			logger.Warnf("读取结果存储失败: %v", err)
		} else if ok {
			metrics.ResultStoreHits.Add(1)
			s.remember(key, res)
			return res, nil
		}
	}

	metrics.Evaluations.Add(1)
	res, err := gaussian.Evaluate(p)
	if err != nil {
		metrics.EvaluationErrors.Add(1)
		return gaussian.Result{}, err
	}
	if res.Saturated {
		metrics.Saturations.Add(1)
	}
	s.remember(key, res)
	if s.results != nil {
		if err := s.results.Put(p, res); err != nil {
			logger.Warnf("写入结果存储失败: %v", err)
		}
	}
	return res, nil
}

func (s *Server) remember(key string, res gaussian.Result) {
	if key != "" {
		s.cache.Set(key, res, 0)
	}
}

func queryRequest(c *gin.Context) (gaussian.Params, error) {
	req := evalRequest{X: c.Query("x"), Mu: c.Query("mu"), Sigma: c.Query("sigma")}
	return req.params(c.Query("unit") == "decimal")
}

func (s *Server) handleCDF(c *gin.Context) {
	p, err := queryRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.evaluate(p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCDFResponse(p, res))
}

func (s *Server) handleErfc(c *gin.Context) {
	p, err := queryRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.evaluate(p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"erfc": res.Erfc.String()})
}

type batchRequest struct {
	Unit  string        `json:"unit"`
	Items []evalRequest `json:"items"`
}

type batchItem struct {
	Index  int            `json:"index"`
	Result *cdfResponse   `json:"result,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(req.Items) == 0 {
		writeError(c, fmt.Errorf("%w: items is empty", errBadRequest))
		return
	}
	if len(req.Items) > s.cfg.MaxBatch {
		writeError(c, fmt.Errorf("%w: %d items exceeds limit %d", errBadRequest, len(req.Items), s.cfg.MaxBatch))
		return
	}
	metrics.BatchItems.Add(int64(len(req.Items)))

	decimalUnit := req.Unit == "decimal"
	out := make([]batchItem, len(req.Items))
	for i, item := range req.Items {
		out[i].Index = i
		p, err := item.params(decimalUnit)
		if err == nil {
			var res gaussian.Result
			if res, err = s.evaluate(p); err == nil {
				r := newCDFResponse(p, res)
				out[i].Result = &r
				continue
			}
		}
		out[i].Error = &errorResponse{Error: errorKind(err), Message: err.Error()}
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if s.runs == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		logger.Errorf("list runs: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal", Message: err.Error()})
		return
	}
	if runs == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("http")
	}
}
