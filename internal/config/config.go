package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"reconciler/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Venue    VenueConfig
	Fees     FeeConfig
	Ledger   LedgerConfig
	Run      RunConfig
	Logging  LoggingConfig
}

// ServerConfig - HTTP сервер оператора (режим watch)
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string // для websocket, через запятую
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	URL      string // DATABASE_URL, имеет приоритет над полями ниже
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// VenueConfig - торговая площадка
type VenueConfig struct {
	Name      string
	BaseURL   string
	APIKey    string
	APISecret string // расшифрованный секрет

	RateLimit    float64 // запросов/сек
	RateBurst    float64
	Timeout      time.Duration
	MaxRetries   int // число попыток запроса, 1 = без повторов
	RetryBackoff time.Duration
}

// FeeConfig - комиссия платформы
type FeeConfig struct {
	DefaultRate decimal.Decimal
	Overrides   map[string]decimal.Decimal // базовый актив -> ставка
	Scale       int32                      // знаков после запятой при округлении комиссии
}

// LedgerConfig - поведение леджера
type LedgerConfig struct {
	// RejectNegativeCreate: создание строки баланса с отрицательным значением
	// откатывает транзакцию вместо предупреждения
	RejectNegativeCreate bool
}

// RunConfig - параметры прохода сверки
type RunConfig struct {
	Timeout       time.Duration // 0 = без ограничения
	WatchInterval time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

const (
	defaultFeeRate  = "0.005"
	defaultFeeScale = 8
	maxFeeScale     = 18
)

// Load загружает конфигурацию из переменных окружения.
// Если в рабочей директории есть .env, он читается первым; уже заданные переменные не перезаписываются.
func Load() (*Config, error) {
	return LoadWithEnvFile(".env")
}

// LoadWithEnvFile как Load, но с явным путём к .env.
// Отсутствующий файл не ошибка.
func LoadWithEnvFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	feeRate, err := getEnvAsDecimal("PLATFORM_FEE_RATE", decimal.RequireFromString(defaultFeeRate))
	if err != nil {
		return nil, err
	}

	overrides, err := ParseFeeOverrides(getEnv("PLATFORM_FEE_OVERRIDES", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "reconciler"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Venue: VenueConfig{
			Name:         strings.ToLower(getEnv("VENUE_NAME", "coinbase")),
			BaseURL:      getEnv("COINBASE_BASE_URL", "https://api.coinbase.com"),
			APIKey:       getEnv("COINBASE_API_KEY", ""),
			RateLimit:    getEnvAsFloat("VENUE_RATE_LIMIT", 10),
			RateBurst:    getEnvAsFloat("VENUE_RATE_BURST", 20),
			Timeout:      getEnvAsDuration("VENUE_TIMEOUT", 10*time.Second),
			MaxRetries:   getEnvAsInt("VENUE_MAX_RETRIES", 1),
			RetryBackoff: getEnvAsDuration("VENUE_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Fees: FeeConfig{
			DefaultRate: feeRate,
			Overrides:   overrides,
			Scale:       int32(getEnvAsInt("FEE_SCALE", defaultFeeScale)),
		},
		Ledger: LedgerConfig{
			RejectNegativeCreate: getEnvAsBool("LEDGER_REJECT_NEGATIVE_CREATE", false),
		},
		Run: RunConfig{
			Timeout:       getEnvAsDuration("RUN_TIMEOUT", 0),
			WatchInterval: getEnvAsDuration("WATCH_INTERVAL", time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
	}

	secret, err := resolveVenueSecret()
	if err != nil {
		return nil, err
	}
	cfg.Venue.APISecret = secret

	if err := cfg.validateRequired(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveVenueSecret: открытый COINBASE_API_SECRET или
// COINBASE_API_SECRET_ENCRYPTED, расшифрованный ключом ENCRYPTION_KEY
func resolveVenueSecret() (string, error) {
	if plain := getEnv("COINBASE_API_SECRET", ""); plain != "" {
		return plain, nil
	}

	encrypted := getEnv("COINBASE_API_SECRET_ENCRYPTED", "")
	if encrypted == "" {
		return "", nil
	}

	key := getEnv("ENCRYPTION_KEY", "")
	if key == "" {
		return "", fmt.Errorf("ENCRYPTION_KEY is required to decrypt COINBASE_API_SECRET_ENCRYPTED")
	}
	if len(key) != crypto.KeySize {
		return "", fmt.Errorf("ENCRYPTION_KEY must be exactly %d bytes for AES-256", crypto.KeySize)
	}

	secret, err := crypto.DecryptSecret(encrypted, key)
	if err != nil {
		return "", fmt.Errorf("decrypt COINBASE_API_SECRET_ENCRYPTED: %w", err)
	}
	return secret, nil
}

// validateRequired проверяет обязательные параметры подключения
func (c *Config) validateRequired() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST is required")
	}

	if c.Venue.Name != "coinbase" {
		return fmt.Errorf("unsupported VENUE_NAME %q", c.Venue.Name)
	}

	if c.Venue.APIKey == "" {
		return fmt.Errorf("COINBASE_API_KEY is required")
	}

	if c.Venue.APISecret == "" {
		return fmt.Errorf("COINBASE_API_SECRET or COINBASE_API_SECRET_ENCRYPTED is required")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Venue.RateLimit <= 0 {
		return fmt.Errorf("VENUE_RATE_LIMIT must be positive, got %v", c.Venue.RateLimit)
	}

	if c.Venue.RateBurst < 1 {
		return fmt.Errorf("VENUE_RATE_BURST must be at least 1, got %v", c.Venue.RateBurst)
	}

	if c.Venue.Timeout <= 0 {
		return fmt.Errorf("VENUE_TIMEOUT must be positive, got %v", c.Venue.Timeout)
	}

	if c.Venue.MaxRetries < 1 || c.Venue.MaxRetries > 10 {
		return fmt.Errorf("VENUE_MAX_RETRIES must be between 1 and 10, got %d", c.Venue.MaxRetries)
	}

	if err := validateFeeRate("PLATFORM_FEE_RATE", c.Fees.DefaultRate); err != nil {
		return err
	}
	for asset, rate := range c.Fees.Overrides {
		if err := validateFeeRate("PLATFORM_FEE_OVERRIDES["+asset+"]", rate); err != nil {
			return err
		}
	}

	if c.Fees.Scale < 0 || c.Fees.Scale > maxFeeScale {
		return fmt.Errorf("FEE_SCALE must be between 0 and %d, got %d", maxFeeScale, c.Fees.Scale)
	}

	if c.Run.Timeout < 0 {
		return fmt.Errorf("RUN_TIMEOUT cannot be negative, got %v", c.Run.Timeout)
	}

	if c.Run.WatchInterval < time.Second {
		return fmt.Errorf("WATCH_INTERVAL must be at least 1s, got %v", c.Run.WatchInterval)
	}

	return nil
}

// ставка в долях: 0 <= rate < 1
func validateFeeRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1), got %s", name, rate)
	}
	return nil
}

// ParseFeeOverrides разбирает строку вида "BTC=0.004,ETH=0.0045"
func ParseFeeOverrides(s string) (map[string]decimal.Decimal, error) {
	overrides := make(map[string]decimal.Decimal)
	if strings.TrimSpace(s) == "" {
		return overrides, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		asset, rateStr, ok := strings.Cut(pair, "=")
		asset = strings.ToUpper(strings.TrimSpace(asset))
		if !ok || asset == "" {
			return nil, fmt.Errorf("PLATFORM_FEE_OVERRIDES: invalid entry %q", pair)
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil {
			return nil, fmt.Errorf("PLATFORM_FEE_OVERRIDES: invalid rate for %s: %w", asset, err)
		}
		overrides[asset] = rate
	}

	return overrides, nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	if d.URL != "" {
		return "url=<redacted>"
	}
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Address адрес HTTP сервера
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// в отличие от остальных getEnv*, некорректное значение - ошибка
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, valueStr, err)
	}
	return value, nil
}
