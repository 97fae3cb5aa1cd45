// Package logger 基于 logrus 的全局日志，支持 lumberjack 文件轮转。
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampFormat 日志时间格式 yy-mm-dd HH:MM:ss
const TimestampFormat = "06-01-02 15:04:05"

var (
	mu     sync.RWMutex
	logger *logrus.Logger
	file   string
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // 为空则只输出到控制台
	MaxSize    int    `yaml:"max_size"`    // 单个文件最大 MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // 天
	Compress   bool   `yaml:"compress"`
	JSON       bool   `yaml:"json"` // 输出 JSON 而不是文本
}

func newFormatter(cfg Config) logrus.Formatter {
	if cfg.JSON {
		return &logrus.JSONFormatter{TimestampFormat: TimestampFormat}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	}
}

// Init 初始化全局日志。重复调用会替换之前的实例。
func Init(cfg Config) error {
	return InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter 与 Init 相同，但控制台输出写到 w（测试或 TUI 模式下传 io.Discard）。
func InitWithWriter(cfg Config, w io.Writer) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(newFormatter(cfg))

	writers := []io.Writer{w}
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	out := io.MultiWriter(writers...)
	l.SetOutput(out)

	// 直接使用 logrus 包级函数的地方也写到同一个输出
	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(newFormatter(cfg))

	mu.Lock()
	logger = l
	file = cfg.OutputFile
	mu.Unlock()
	return nil
}

// InitDefault info 级别，只输出到控制台。
func InitDefault() error {
	return Init(Config{Level: "info"})
}

// L 返回全局实例；未初始化时返回标准 logrus 实例。
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// CurrentFile 当前日志文件路径，未配置文件输出时为空。
func CurrentFile() string {
	mu.RLock()
	defer mu.RUnlock()
	return file
}

func Debugf(format string, args ...interface{}) { L().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().Errorf(format, args...) }

// WithField 添加字段到日志上下文
func WithField(key string, value interface{}) *logrus.Entry {
	return L().WithField(key, value)
}

// WithFields 添加多个字段到日志上下文
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}
