package log

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	//为空时只输出到stderr
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	mux    sync.RWMutex
	logger = zap.NewNop().Sugar()
	closer func() error
)

// Init 按配置替换全局logger
func Init(c Config) error {
	level, err := zapcore.ParseLevel(defaultString(c.Level, "info"))
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if strings.EqualFold(c.Encoding, "console") {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	var rotator *lumberjack.Logger
	if c.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		}
		sinks = append(sinks, zapcore.AddSync(rotator))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	Set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))

	mux.Lock()
	if rotator != nil {
		closer = rotator.Close
	} else {
		closer = nil
	}
	mux.Unlock()
	return nil
}

// Set 直接替换全局logger, 测试中可传入 zaptest/observer 构造的 logger
func Set(l *zap.Logger) {
	mux.Lock()
	defer mux.Unlock()
	logger = l.Sugar()
}

// Sync 刷新缓冲并关闭滚动文件
func Sync() error {
	mux.RLock()
	defer mux.RUnlock()
	err := logger.Sync()
	if closer != nil {
		if cerr := closer(); cerr != nil {
			return cerr
		}
	}
	return err
}

func current() *zap.SugaredLogger {
	mux.RLock()
	defer mux.RUnlock()
	return logger
}

func withContext(ctx context.Context) *zap.SugaredLogger {
	l := current()
	if id := RequestID(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}

func Debugf(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	current().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

func DebugContextf(ctx context.Context, format string, args ...interface{}) {
	withContext(ctx).Debugf(format, args...)
}

func InfoContextf(ctx context.Context, format string, args ...interface{}) {
	withContext(ctx).Infof(format, args...)
}

func WarnContextf(ctx context.Context, format string, args ...interface{}) {
	withContext(ctx).Warnf(format, args...)
}

func ErrorContextf(ctx context.Context, format string, args ...interface{}) {
	withContext(ctx).Errorf(format, args...)
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
