package ratelimit

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
)

// RateLimiter - Token Bucket rate limiter для запросов к API торговой площадки
//
// Ведро наполняется со скоростью rate токенов/сек, ёмкость burst.
// Каждый запрос потребляет 1 токен.
//
// Использование:
//
//	limiter := NewRateLimiter(10, 20) // 10 req/sec, burst 20
//	err := limiter.Wait(ctx)          // блокирующее ожидание
//	if limiter.Allow() { ... }        // неблокирующая проверка
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter создаёт новый rate limiter
//
// Параметры:
//   - rate: количество запросов в секунду
//   - burst: максимальный burst (если меньше rate, поднимается до rate; не меньше 1)
func NewRateLimiter(ratePerSec, burst float64) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	if burst < ratePerSec {
		burst = ratePerSec
	}

	// burst 0 запрещает любой Wait
	b := int(burst)
	if b < 1 {
		b = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), b),
	}
}

// ForVenue возвращает limiter с публичными лимитами площадки.
//
//   - coinbase: 30 req/sec на приватные эндпоинты Advanced Trade (burst 30)
//   - остальные: 10 req/sec (burst 20)
func ForVenue(name string) *RateLimiter {
	switch strings.ToLower(name) {
	case "coinbase":
		return NewRateLimiter(30, 30)
	default:
		return NewRateLimiter(10, 20)
	}
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// WaitN блокирует до получения n токенов
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return rl.limiter.WaitN(ctx, n)
}

// Allow проверяет доступность токена без блокировки
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Tokens возвращает текущее количество доступных токенов
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

// Rate возвращает скорость пополнения (токенов/сек)
func (rl *RateLimiter) Rate() float64 {
	return float64(rl.limiter.Limit())
}

// Burst возвращает ёмкость ведра
func (rl *RateLimiter) Burst() float64 {
	return float64(rl.limiter.Burst())
}

// SetRate изменяет скорость пополнения. Потокобезопасно.
func (rl *RateLimiter) SetRate(ratePerSec float64) {
	if ratePerSec <= 0 {
		return
	}
	rl.limiter.SetLimit(rate.Limit(ratePerSec))
}
