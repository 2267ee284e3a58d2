package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// defaultOrigins разрешены всегда (локальная разработка)
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
}

// CORS - middleware для настройки Cross-Origin Resource Sharing.
//
// allowedOrigins - список через запятую (ALLOWED_ORIGINS), добавляется к локальным.
// "*" разрешает любой origin без credentials.
//
// Заголовки:
// - Access-Control-Allow-Origin: конкретный домен (не * при credentials)
// - Access-Control-Allow-Methods: GET, POST, OPTIONS
// - Access-Control-Max-Age: 86400 (24 часа)
func CORS(allowedOrigins string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(defaultOrigins))
	for _, origin := range defaultOrigins {
		allowed[origin] = true
	}

	allowAll := false
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "" || (allowAll && !allowed[origin]):
				// запросы без Origin (curl) или режим "*"
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			// для неразрешенных origins заголовки не ставим - браузер заблокирует

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
