package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config конфигурация для retry логики
//
// Экспоненциальный backoff с jitter:
// delay = min(InitialDelay * Multiplier^attempt + jitter, MaxDelay)
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую).
	// 1 = без повторов. 0 или отрицательное приводится к 1.
	MaxAttempts int

	// InitialDelay - задержка перед вторым вызовом. По умолчанию: 100ms
	InitialDelay time.Duration

	// MaxDelay - потолок задержки. По умолчанию: 30s
	MaxDelay time.Duration

	// Multiplier - множитель экспоненты. По умолчанию: 2.0
	Multiplier float64

	// JitterFactor - доля случайной вариации (0.0 - 1.0). По умолчанию: 0.1
	JitterFactor float64

	// RetryIf решает, повторять ли ошибку. nil = IsRetryable
	RetryIf func(error) bool

	// OnRetry вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig - одна попытка, без повторов
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  1,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// VenueConfig для запросов к торговой площадке:
// attempts попыток с начальной задержкой backoff, повторяются только временные ошибки
func VenueConfig(attempts int, backoff time.Duration) Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	if backoff > 0 {
		cfg.InitialDelay = backoff
	}
	cfg.RetryIf = IsRetryable
	return cfg
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
	if c.RetryIf == nil {
		c.RetryIf = IsRetryable
	}
}

// calculateDelay вычисляет задержку перед попыткой attempt+1
func (c *Config) calculateDelay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		delay += delay * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Do выполняет операцию с повторными попытками.
// Возвращает nil при успехе или последнюю ошибку.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult выполняет операцию с результатом и retry
//
//	status, err := retry.DoWithResult(ctx, func() (*venue.OrderStatus, error) {
//	    return client.GetOrder(ctx, id)
//	}, retry.VenueConfig(3, time.Second))
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.calculateDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// RetryableError - ошибка, которая сама знает, можно ли её повторять
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable: ошибки контекста не повторяются; RetryableError решает сама;
// остальные считаются временными
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	return true
}

// PermanentError оборачивает ошибку которую не нужно повторять
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string   { return e.Err.Error() }
func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// Permanent оборачивает ошибку в PermanentError
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
