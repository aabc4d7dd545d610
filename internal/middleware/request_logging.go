package middleware

import (
	"log"
	"net/http"
	"time"
)

// RequestLogging logs method, path, status and latency for every request.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		log.Printf("[HTTP] %s %s -> %d (%s)",
			r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}
