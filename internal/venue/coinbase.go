package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reconciler/pkg/ratelimit"
	"reconciler/pkg/retry"
	"reconciler/pkg/utils"

	"go.uber.org/zap"
)

const (
	coinbaseName           = "coinbase"
	coinbaseDefaultBaseURL = "https://api.coinbase.com"
	coinbaseOrderPath      = "/api/v3/brokerage/orders/historical/"

	// тело ошибки обрезается до этого размера при логировании
	maxErrorBodyLog = 512
	maxResponseBody = 1 << 20
)

// CoinbaseConfig - параметры клиента Coinbase Advanced Trade
type CoinbaseConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string

	HTTP    HTTPClientConfig
	Limiter *ratelimit.RateLimiter // nil = лимиты по умолчанию для coinbase
	Retry   retry.Config
}

// Coinbase реализует Venue для Coinbase Advanced Trade
type Coinbase struct {
	baseURL   string
	apiKey    string
	apiSecret string

	http    *HTTPClient
	limiter *ratelimit.RateLimiter
	retry   retry.Config
	logger  *utils.Logger
	now     func() time.Time
}

// NewCoinbase создаёт клиент Coinbase
func NewCoinbase(cfg CoinbaseConfig) *Coinbase {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = coinbaseDefaultBaseURL
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.ForVenue(coinbaseName)
	}

	return &Coinbase{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      NewHTTPClient(cfg.HTTP),
		limiter:   limiter,
		retry:     cfg.Retry,
		logger:    utils.L().WithVenue(coinbaseName),
		now:       time.Now,
	}
}

// Name возвращает имя площадки
func (c *Coinbase) Name() string {
	return coinbaseName
}

// GetOrder запрашивает GET /api/v3/brokerage/orders/historical/{order_id}
func (c *Coinbase) GetOrder(ctx context.Context, externalOrderID string) (*OrderStatus, error) {
	if externalOrderID == "" {
		return nil, &VenueError{Venue: coinbaseName, Message: "empty order id", Original: ErrOrderNotFound, StatusCode: http.StatusNotFound}
	}

	path := coinbaseOrderPath + url.PathEscape(externalOrderID)

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("retrying venue request",
			utils.ExternalOrderID(externalOrderID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	body, err := retry.DoWithResult(ctx, func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, path, nil)
	}, cfg)
	if err != nil {
		return nil, err
	}

	status, err := NormalizeOrder(body)
	if err != nil {
		return nil, &VenueError{Venue: coinbaseName, StatusCode: http.StatusOK, Message: err.Error(), Original: err}
	}
	return status, nil
}

// Close закрывает соединения
func (c *Coinbase) Close() error {
	c.http.Close()
	return nil
}

// sign - HMAC-SHA256(timestamp + method + path + body), hex
func (c *Coinbase) sign(timestamp, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет подписанный запрос к Coinbase API
func (c *Coinbase) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-SIGN", c.sign(timestamp, method, path, string(payload)))
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &VenueError{Venue: coinbaseName, Message: "request failed", Original: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &VenueError{Venue: coinbaseName, StatusCode: resp.StatusCode, Message: "read body", Original: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseCoinbaseError(resp.StatusCode, body)
	}

	return body, nil
}

// coinbaseErrorResponse - тело ошибки Advanced Trade API
type coinbaseErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseCoinbaseError(statusCode int, body []byte) *VenueError {
	verr := &VenueError{Venue: coinbaseName, StatusCode: statusCode}

	var parsed coinbaseErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Error != "" || parsed.Message != "") {
		verr.Code = parsed.Error
		verr.Message = parsed.Message
	} else {
		text := string(body)
		if len(text) > maxErrorBodyLog {
			text = text[:maxErrorBodyLog]
		}
		verr.Message = fmt.Sprintf("HTTP %d: %s", statusCode, text)
	}

	if statusCode == http.StatusNotFound {
		verr.Original = ErrOrderNotFound
	}
	return verr
}
