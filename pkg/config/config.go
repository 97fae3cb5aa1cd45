// Package config 加载工具层配置：默认值 < 配置文件（YAML/JSON）< 环境变量 GAUSSCDF_*。
//
// 核心计算包不读配置，这里只服务 CLI、一致性检查和 HTTP 服务。
package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/betbot/gausscdf/pkg/logger"
	"github.com/betbot/gausscdf/pkg/wad"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GAUSSCDF_"

// DefaultToleranceWei 文档给出的绝对误差 1e-8
const DefaultToleranceWei = "10000000000"

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
	JSON       bool   `yaml:"json" json:"json"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Listen      string        `yaml:"listen" json:"listen"`
	CacheTTL    time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	MaxBatch    int           `yaml:"max_batch" json:"max_batch"`
	DebugListen string        `yaml:"debug_listen" json:"debug_listen"` // 为空则不开 /debug/vars
	ReleaseMode bool          `yaml:"release_mode" json:"release_mode"`
	CacheDir    string        `yaml:"cache_dir" json:"cache_dir"`   // Badger 结果存储目录，为空则只用内存缓存
	RateLimit   float64       `yaml:"rate_limit" json:"rate_limit"` // 每个 IP 每秒请求数，0 不限流
	RateBurst   int           `yaml:"rate_burst" json:"rate_burst"`
}

// ConformanceConfig 一致性检查配置
type ConformanceConfig struct {
	Vectors   string `yaml:"vectors" json:"vectors"`     // 本地路径或 http(s) 地址
	Tolerance string `yaml:"tolerance" json:"tolerance"` // wei，整数字面量
	Workers   int    `yaml:"workers" json:"workers"`
}

// Config 应用配置
type Config struct {
	Log         LogConfig         `yaml:"log" json:"log"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Conformance ConformanceConfig `yaml:"conformance" json:"conformance"`
	DBPath      string            `yaml:"db_path" json:"db_path"`
}

// Default 返回全部默认值
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Server: ServerConfig{
			Listen:   ":8080",
			CacheTTL: 5 * time.Minute,
			MaxBatch: 1000,
		},
		Conformance: ConformanceConfig{
			Vectors:   "pkg/gaussian/testdata/normal_cdf_vectors.csv",
			Tolerance: DefaultToleranceWei,
			Workers:   runtime.GOMAXPROCS(0),
		},
		DBPath: "data/runs.db",
	}
}

// Load 依次叠加默认值、配置文件（path 为空则跳过）和环境变量，最后校验。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.JSON = parseBoolEnv("LOG_JSON", cfg.Log.JSON)

	cfg.Server.Listen = getEnv("LISTEN", cfg.Server.Listen)
	cfg.Server.CacheTTL = parseDurationEnv("CACHE_TTL", cfg.Server.CacheTTL)
	cfg.Server.MaxBatch = parseIntEnv("MAX_BATCH", cfg.Server.MaxBatch)
	cfg.Server.DebugListen = getEnv("DEBUG_LISTEN", cfg.Server.DebugListen)
	cfg.Server.ReleaseMode = parseBoolEnv("RELEASE_MODE", cfg.Server.ReleaseMode)
	cfg.Server.CacheDir = getEnv("CACHE_DIR", cfg.Server.CacheDir)
	cfg.Server.RateLimit = parseFloatEnv("RATE_LIMIT", cfg.Server.RateLimit)
	cfg.Server.RateBurst = parseIntEnv("RATE_BURST", cfg.Server.RateBurst)

	cfg.Conformance.Vectors = getEnv("VECTORS", cfg.Conformance.Vectors)
	cfg.Conformance.Tolerance = getEnv("TOLERANCE", cfg.Conformance.Tolerance)
	cfg.Conformance.Workers = parseIntEnv("WORKERS", cfg.Conformance.Workers)

	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if _, err := c.ToleranceWei(); err != nil {
		return err
	}
	if c.Conformance.Workers <= 0 {
		return fmt.Errorf("workers 必须大于 0")
	}
	if c.Server.MaxBatch <= 0 {
		return fmt.Errorf("max_batch 必须大于 0")
	}
	if c.Server.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl 不能为负数")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("rate_limit / rate_burst 不能为负数")
	}
	return nil
}

// ToleranceWei 解析容差（wei），必须非负。
func (c *Config) ToleranceWei() (*big.Int, error) {
	v, err := wad.ParseFixed(c.Conformance.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("tolerance 无效: %w", err)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("tolerance 不能为负数: %s", v)
	}
	return v, nil
}

// LoggerConfig 转成 logger 包的配置
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		OutputFile: c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
		JSON:       c.Log.JSON,
	}
}

// getEnv 获取 GAUSSCDF_ 前缀的环境变量，未设置时返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(os.Getenv(EnvPrefix + key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloatEnv(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(os.Getenv(EnvPrefix+key), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(EnvPrefix + key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(EnvPrefix + key))
	if err != nil {
		return defaultValue
	}
	return parsed
}
