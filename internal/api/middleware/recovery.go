package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"reconciler/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers.
// Логирует panic со stack trace и отвечает 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.L().WithComponent("http").Error("panic in handler",
					zap.Any("panic", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
