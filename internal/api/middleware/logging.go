package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"reconciler/pkg/utils"
)

// responseWriter захватывает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging - middleware для логирования HTTP запросов.
//
// Поля: method, path, status, latency_ms, remote_addr, bytes.
// /ws/stream не оборачивается: websocket апгрейд требует http.Hijacker.
func Logging(next http.Handler) http.Handler {
	logger := utils.L().WithComponent("http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/stream" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			utils.Latency(float64(time.Since(start).Microseconds())/1000),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int64("bytes", wrapped.written),
		)
	})
}
