package utils

// logger.go - настройка логирования
//
// Структурированное логирование на zap (uber-go/zap):
// - формат JSON (production) или console (text)
// - уровни DEBUG, INFO, WARN, ERROR, FATAL
// - вывод в файл с fallback на stderr
// - глобальный логгер для пакетов без явного DI
// - конструкторы полей для доменных атрибутов сверки (order_id, user_id, asset...)

import (
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - параметры логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // путь к файлу; пусто = stderr
	Development bool
}

// Logger - обёртка над zap.Logger с доменными хелперами
type Logger struct {
	*zap.Logger
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitLogger создаёт логгер по конфигурации.
// Никогда не возвращает nil: при ошибке открытия файла пишет в stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "text") || strings.EqualFold(cfg.Format, "console") {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, openOutput(cfg.Output), zap.NewAtomicLevelAt(level))

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{Logger: zap.New(core, opts...)}
}

// openOutput открывает файл лога или возвращает stderr
func openOutput(path string) zapcore.WriteSyncer {
	if path == "" || path == "stderr" {
		return zapcore.Lock(os.Stderr)
	}
	if path == "stdout" {
		return zapcore.Lock(os.Stdout)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(f)
}

// parseLevel переводит строку в уровень zap, по умолчанию info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ============ Глобальный логгер ============

// InitGlobalLogger создаёт логгер и делает его глобальным
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger заменяет глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// GetGlobalLogger возвращает глобальный логгер, создавая дефолтный при первом обращении
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============ Методы Logger ============

// With возвращает дочерний логгер с полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

func (l *Logger) WithVenue(name string) *Logger {
	return l.With(Venue(name))
}

// ============ Конструкторы полей ============

func OrderID(id string) zap.Field         { return zap.String("order_id", id) }
func ExternalOrderID(id string) zap.Field { return zap.String("external_order_id", id) }
func UserID(id string) zap.Field          { return zap.String("user_id", id) }
func Asset(code string) zap.Field         { return zap.String("asset", code) }
func Venue(name string) zap.Field         { return zap.String("venue", name) }
func Side(side string) zap.Field          { return zap.String("side", side) }
func Status(status string) zap.Field      { return zap.String("status", status) }
func RunID(id int64) zap.Field            { return zap.Int64("run_id", id) }
func Component(name string) zap.Field     { return zap.String("component", name) }

// Latency - длительность в миллисекундах
func Latency(ms float64) zap.Field { return zap.Float64("latency_ms", ms) }

// Amount пишет decimal строкой без потери точности
func Amount(key string, d decimal.Decimal) zap.Field { return zap.String(key, d.String()) }
