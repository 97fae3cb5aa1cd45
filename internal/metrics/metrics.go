// Package metrics expvar 计数器与 /debug 服务。
package metrics

import "expvar"

var (
	Evaluations      = expvar.NewInt("gausscdf_evaluations")
	EvaluationErrors = expvar.NewInt("gausscdf_evaluation_errors")
	Saturations      = expvar.NewInt("gausscdf_tail_saturations")
	CacheHits        = expvar.NewInt("gausscdf_cache_hits")
	CacheMisses      = expvar.NewInt("gausscdf_cache_misses")
	// 内存缓存未命中、但在持久化结果存储里找到
	ResultStoreHits  = expvar.NewInt("gausscdf_result_store_hits")
	BatchItems       = expvar.NewInt("gausscdf_batch_items")

	ConformanceRuns     = expvar.NewInt("gausscdf_conformance_runs")
	ConformanceFailures = expvar.NewInt("gausscdf_conformance_failures")
	// 最近一次一致性检查的最大误差（wei，十进制字符串）
	ConformanceMaxError = expvar.NewString("gausscdf_conformance_max_error")
)
