package server

import (
	"io"
	"net/http"

	"workservice/internal/logger"
)

// newGreetingHandler answers GET / with greeting. The mux replies 404 to
// other paths and 405 to other methods on /.
func newGreetingHandler(greeting string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, greeting)
	})
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithComponent("http")
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Request")
		next.ServeHTTP(w, r)
	})
}
