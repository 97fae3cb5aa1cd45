package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gausscdf/internal/metrics"
	"github.com/betbot/gausscdf/internal/runstore"
	"github.com/betbot/gausscdf/pkg/gaussian"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRuns struct {
	runs  []runstore.Run
	err   error
	limit int
}

func (f *fakeRuns) List(ctx context.Context, limit int) ([]runstore.Run, error) {
	f.limit = limit
	return f.runs, f.err
}

func newTestServer(t *testing.T, runs RunLister) http.Handler {
	t.Helper()
	s := New(Config{CacheTTL: time.Minute, MaxBatch: 3}, runs, nil)
	t.Cleanup(s.Close)
	return s.Router()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCDF_Fixed(t *testing.T) {
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodGet, "/api/cdf?x=3000000000000000000&mu=0&sigma=1000000000000000000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp cdfResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "998650101968369906", resp.CDF)
	assert.Equal(t, "2699796063260188", resp.Erfc)
	assert.Equal(t, "3000000000000000000", resp.Z)
	assert.Equal(t, "0.998650101968369906", resp.CDFDecimal)
	assert.False(t, resp.Saturated)

	// 第二次命中缓存，结果一致
	rec2 := do(t, h, http.MethodGet, "/api/cdf?x=3000000000000000000&mu=0&sigma=1000000000000000000", "")
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestCDF_DecimalUnit(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/cdf?x=0&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp cdfResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "500000000000000000", resp.CDF)
	assert.Equal(t, "1000000000000000000", resp.Erfc)
	assert.Equal(t, "0.500000000000000000", resp.CDFDecimal)
}

func TestCDF_Saturated(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/cdf?x=-50&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cdfResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Saturated)
	assert.Equal(t, "0", resp.CDF)
	assert.Empty(t, resp.Z)
}

func TestErfc(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/erfc?x=-3&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"erfc":"1997300203936739812"}`, rec.Body.String())
}

func TestCDF_Errors(t *testing.T) {
	h := newTestServer(t, nil)
	cases := []struct {
		query string
		kind  string
	}{
		{"x=0&mu=0&sigma=0", KindInvalidSigma},
		{"x=0&mu=2e38&sigma=1&unit=decimal", KindInvalidMu},
		{"x=2e41&mu=0&sigma=1&unit=decimal", KindInvalidX},
		{"x=0&mu=0", KindBadRequest},
		{"x=abc&mu=0&sigma=1", KindBadRequest},
		{"x=1e80&mu=0&sigma=1&unit=decimal", KindArithmeticOverflow},
	}
	for _, c := range cases {
		rec := do(t, h, http.MethodGet, "/api/cdf?"+c.query, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, c.query)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, c.kind, resp.Error, c.query)
		assert.NotEmpty(t, resp.Message)
	}
}

func TestBatch(t *testing.T) {
	h := newTestServer(t, nil)
	body := `{"unit":"decimal","items":[{"x":"3","mu":"0","sigma":"1"},{"x":"0","mu":"0","sigma":"0"},{"x":"","mu":"0","sigma":"1"}]}`
	rec := do(t, h, http.MethodPost, "/api/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Items []batchItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)

	require.NotNil(t, resp.Items[0].Result)
	assert.Equal(t, "998650101968369906", resp.Items[0].Result.CDF)
	require.NotNil(t, resp.Items[1].Error)
	assert.Equal(t, KindInvalidSigma, resp.Items[1].Error.Error)
	require.NotNil(t, resp.Items[2].Error)
	assert.Equal(t, KindBadRequest, resp.Items[2].Error.Error)
	assert.Equal(t, 2, resp.Items[2].Index)
}

func TestBatch_Limits(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var items bytes.Buffer
	items.WriteString(`{"items":[`)
	for i := 0; i < 4; i++ {
		if i > 0 {
			items.WriteString(",")
		}
		items.WriteString(`{"x":"0","mu":"0","sigma":"1"}`)
	}
	items.WriteString(`]}`)
	rec = do(t, h, http.MethodPost, "/api/batch", items.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds limit")

	rec = do(t, h, http.MethodPost, "/api/batch", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	ok := true
	runs := &fakeRuns{runs: []runstore.Run{{ID: "r1", Source: "v.csv", OK: &ok, Total: 3, Passed: 3}}}
	h := newTestServer(t, runs)

	rec := do(t, h, http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, runs.limit)

	var got []runstore.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	runs.err = errors.New("db down")
	rec = do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 50, runs.limit)

	rec = do(t, newTestServer(t, nil), http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type memResults struct {
	m    map[string]gaussian.Result
	gets int
	puts int
}

func (r *memResults) Get(p gaussian.Params) (gaussian.Result, bool, error) {
	r.gets++
	res, ok := r.m[p.X.String()+"|"+p.Mu.String()+"|"+p.Sigma.String()]
	return res, ok, nil
}

func (r *memResults) Put(p gaussian.Params, res gaussian.Result) error {
	r.puts++
	r.m[p.X.String()+"|"+p.Mu.String()+"|"+p.Sigma.String()] = res
	return nil
}

func TestResultStore(t *testing.T) {
	results := &memResults{m: map[string]gaussian.Result{}}

	// 不开内存缓存，每次都经过持久化存储
	s := New(Config{}, nil, results)
	defer s.Close()
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/cdf?x=1&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, results.puts)

	storeHits, cacheHits := metrics.ResultStoreHits.Value(), metrics.CacheHits.Value()
	rec2 := do(t, h, http.MethodGet, "/api/cdf?x=1&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, storeHits+1, metrics.ResultStoreHits.Value())
	assert.Equal(t, cacheHits, metrics.CacheHits.Value())
	assert.Equal(t, 1, results.puts)
	assert.Equal(t, 2, results.gets)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())

	// 定义域之外的输入不会进存储
	rec = do(t, h, http.MethodGet, "/api/cdf?x=0&mu=0&sigma=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, results.gets)
}

func TestRateLimit(t *testing.T) {
	s := New(Config{RateLimit: 0.001, RateBurst: 2}, nil, nil)
	t.Cleanup(s.Close)
	h := s.Router()

	target := "/api/cdf?x=0&mu=0&sigma=1000000000000000000"
	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := do(t, h, http.MethodGet, target, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, KindRateLimited, resp.Error)

	// 健康检查不限流
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}

func TestCDF_HugeDecimalExponent(t *testing.T) {
	h := newTestServer(t, nil)

	start := time.Now()
	rec := do(t, h, http.MethodGet, "/api/cdf?x=1e50000000&mu=0&sigma=1&unit=decimal", "")
	assert.Less(t, time.Since(start), time.Second)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, KindArithmeticOverflow, resp.Error)

	// 极小的指数舍入为 0，不报错
	rec = do(t, h, http.MethodGet, "/api/cdf?x=1e-50000000&mu=0&sigma=1&unit=decimal", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	start = time.Now()
	items := make([]string, 3)
	for i := range items {
		items[i] = `{"x":"1e50000000","mu":"0","sigma":"1"}`
	}
	rec = do(t, h, http.MethodPost, "/api/batch", `{"unit":"decimal","items":[`+strings.Join(items, ",")+`]}`)
	assert.Less(t, time.Since(start), time.Second)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), KindArithmeticOverflow))
}
