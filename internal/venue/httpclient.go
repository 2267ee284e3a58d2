package venue

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig - таймауты и пул соединений клиента площадки
type HTTPClientConfig struct {
	Timeout         time.Duration // весь запрос, включая чтение тела
	HeaderTimeout   time.Duration // ожидание заголовков ответа, не больше Timeout
	DialTimeout     time.Duration
	IdleConns       int
	IdleConnTimeout time.Duration
}

// DefaultHTTPClientConfig - значения для одного REST хоста с последовательными запросами
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:         10 * time.Second,
		HeaderTimeout:   10 * time.Second,
		DialTimeout:     5 * time.Second,
		IdleConns:       4,
		IdleConnTimeout: 90 * time.Second,
	}
}

// WithTimeout возвращает копию с общим таймаутом timeout; 0 оставляет как есть
func (c HTTPClientConfig) WithTimeout(timeout time.Duration) HTTPClientConfig {
	if timeout <= 0 {
		return c
	}
	c.Timeout = timeout
	if c.HeaderTimeout > timeout {
		c.HeaderTimeout = timeout
	}
	return c
}

// HTTPClient - http.Client с отдельным транспортом на площадку
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient создаёт клиент по конфигурации
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          cfg.IdleConns,
		MaxIdleConnsPerHost:   cfg.IdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ResponseHeaderTimeout: cfg.HeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPClient{
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
	}
}

// Do выполняет запрос
func (hc *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return hc.client.Do(req)
}

// Close закрывает простаивающие соединения
func (hc *HTTPClient) Close() {
	hc.client.CloseIdleConnections()
}
