package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reconciler/pkg/crypto"
)

var configKeys = []string{
	"SERVER_PORT", "SERVER_HOST", "ALLOWED_ORIGINS",
	"DB_DRIVER", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSL_MODE",
	"VENUE_NAME", "COINBASE_BASE_URL", "COINBASE_API_KEY", "COINBASE_API_SECRET",
	"COINBASE_API_SECRET_ENCRYPTED", "ENCRYPTION_KEY",
	"VENUE_RATE_LIMIT", "VENUE_RATE_BURST", "VENUE_TIMEOUT", "VENUE_MAX_RETRIES", "VENUE_RETRY_BACKOFF",
	"PLATFORM_FEE_RATE", "PLATFORM_FEE_OVERRIDES", "FEE_SCALE",
	"LEDGER_REJECT_NEGATIVE_CREATE", "RUN_TIMEOUT", "WATCH_INTERVAL",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
}

// setMinimalEnv очищает окружение и задаёт минимально достаточный набор
func setMinimalEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/reconciler")
	t.Setenv("COINBASE_API_KEY", "key")
	t.Setenv("COINBASE_API_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := LoadWithEnvFile("")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if !cfg.Fees.DefaultRate.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("ставка по умолчанию: ожидалось 0.005, получено %s", cfg.Fees.DefaultRate)
	}
	if cfg.Fees.Scale != 8 {
		t.Errorf("FEE_SCALE: ожидалось 8, получено %d", cfg.Fees.Scale)
	}
	if cfg.Venue.Name != "coinbase" {
		t.Errorf("VENUE_NAME: ожидалось coinbase, получено %s", cfg.Venue.Name)
	}
	if cfg.Venue.MaxRetries != 1 {
		t.Errorf("VENUE_MAX_RETRIES: ожидалось 1, получено %d", cfg.Venue.MaxRetries)
	}
	if cfg.Run.Timeout != 0 {
		t.Errorf("RUN_TIMEOUT: ожидалось 0, получено %v", cfg.Run.Timeout)
	}
	if cfg.Run.WatchInterval != time.Minute {
		t.Errorf("WATCH_INTERVAL: ожидалось 1m, получено %v", cfg.Run.WatchInterval)
	}
	if cfg.Ledger.RejectNegativeCreate {
		t.Error("LEDGER_REJECT_NEGATIVE_CREATE по умолчанию должен быть false")
	}
	if len(cfg.Fees.Overrides) != 0 {
		t.Errorf("ожидался пустой список переопределений, получено %v", cfg.Fees.Overrides)
	}
}

func TestLoad_RequiredSettings(t *testing.T) {
	tests := []struct {
		name        string
		unset       string
		errContains string
	}{
		{"no database", "DATABASE_URL", "DATABASE_URL or DB_HOST"},
		{"no api key", "COINBASE_API_KEY", "COINBASE_API_KEY"},
		{"no api secret", "COINBASE_API_SECRET", "COINBASE_API_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMinimalEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadWithEnvFile("")
			if err == nil {
				t.Fatal("ожидалась ошибка")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ошибка %q должна содержать %q", err, tt.errContains)
			}
		})
	}
}

func TestLoad_InvalidRanges(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"fee rate negative", "PLATFORM_FEE_RATE", "-0.01"},
		{"fee rate one", "PLATFORM_FEE_RATE", "1"},
		{"fee rate not a number", "PLATFORM_FEE_RATE", "half"},
		{"fee scale too big", "FEE_SCALE", "30"},
		{"retries zero", "VENUE_MAX_RETRIES", "0"},
		{"fractional burst", "VENUE_RATE_BURST", "0.5"},
		{"zero burst", "VENUE_RATE_BURST", "0"},
		{"watch interval tiny", "WATCH_INTERVAL", "10ms"},
		{"unsupported venue", "VENUE_NAME", "kraken"},
		{"bad override", "PLATFORM_FEE_OVERRIDES", "BTC"},
		{"override out of range", "PLATFORM_FEE_OVERRIDES", "BTC=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMinimalEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadWithEnvFile(""); err == nil {
				t.Errorf("ожидалась ошибка для %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_EncryptedSecret(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("COINBASE_API_SECRET", "")

	key := "0123456789abcdef0123456789abcdef"
	encrypted, err := crypto.EncryptSecret("venue-secret", key)
	if err != nil {
		t.Fatalf("ошибка шифрования: %v", err)
	}
	t.Setenv("COINBASE_API_SECRET_ENCRYPTED", encrypted)
	t.Setenv("ENCRYPTION_KEY", key)

	cfg, err := LoadWithEnvFile("")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Venue.APISecret != "venue-secret" {
		t.Errorf("ожидался расшифрованный секрет, получено %q", cfg.Venue.APISecret)
	}

	t.Setenv("ENCRYPTION_KEY", "short")
	if _, err := LoadWithEnvFile(""); err == nil {
		t.Error("ожидалась ошибка для ключа неверной длины")
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("COINBASE_API_KEY", "")
	os.Unsetenv("COINBASE_API_KEY")
	os.Unsetenv("FEE_SCALE")

	path := filepath.Join(t.TempDir(), ".env")
	content := "COINBASE_API_KEY=from-file\nFEE_SCALE=6\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("не удалось записать .env: %v", err)
	}

	cfg, err := LoadWithEnvFile(path)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Venue.APIKey != "from-file" {
		t.Errorf("ожидался ключ из файла, получено %q", cfg.Venue.APIKey)
	}
	if cfg.Fees.Scale != 6 {
		t.Errorf("FEE_SCALE: ожидалось 6, получено %d", cfg.Fees.Scale)
	}

	// отсутствующий файл не ошибка
	if _, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("отсутствующий .env не должен быть ошибкой: %v", err)
	}
}

func TestParseFeeOverrides(t *testing.T) {
	overrides, err := ParseFeeOverrides(" btc=0.004, ETH=0.0045 ,")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	expected := map[string]string{"BTC": "0.004", "ETH": "0.0045"}
	if len(overrides) != len(expected) {
		t.Fatalf("ожидалось %d записей, получено %d", len(expected), len(overrides))
	}
	for asset, rate := range expected {
		if !overrides[asset].Equal(decimal.RequireFromString(rate)) {
			t.Errorf("%s: ожидалось %s, получено %s", asset, rate, overrides[asset])
		}
	}

	for _, bad := range []string{"=0.1", "BTC=abc", "BTC"} {
		if _, err := ParseFeeOverrides(bad); err == nil {
			t.Errorf("ожидалась ошибка для %q", bad)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	if d.DSN() != "host=db port=5432 user=u password=p dbname=n sslmode=disable" {
		t.Errorf("неверный DSN: %s", d.DSN())
	}
	if strings.Contains(d.DSNWithoutPassword(), "password") {
		t.Error("DSNWithoutPassword не должен содержать пароль")
	}

	d.URL = "postgres://u:p@db/n"
	if d.DSN() != d.URL {
		t.Errorf("DATABASE_URL должен иметь приоритет, получено %s", d.DSN())
	}
	if strings.Contains(d.DSNWithoutPassword(), "u:p") {
		t.Error("URL с паролем не должен попадать в лог")
	}
}
