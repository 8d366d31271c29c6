package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type loggerKeyType struct{}

var LoggerKey = loggerKeyType{}

// RequestLogger injects a request-scoped logger into the context and
// logs request start/finish.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			ctx := context.WithValue(r.Context(), LoggerKey, reqLog)
			reqLog.Info("request started")
			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			reqLog.Info("request finished", "duration", time.Since(start))
		})
	}
}
