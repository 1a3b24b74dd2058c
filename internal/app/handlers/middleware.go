package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS разрешает запросы фронтенда с перечисленных через запятую origin-ов; "*": с любых.
// Для "*" куки и заголовок Authorization от браузера не принимаются.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	var origins []string
	wildcard := false
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			wildcard = true
		}
		origins = append(origins, o)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           86400,
	})
}

// HealthHandler GET /health
func HealthHandler(ping func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"success":false,"error":"database unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":"ok"}}`))
	}
}
