package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
)

var demoModeWarnOnce sync.Once

// AuthMiddleware gates mutating and sensitive endpoints behind a bearer
// token compared against API_SECRET. When API_SECRET is unset the server
// runs in an explicitly insecure open mode intended for development only;
// the condition is logged loudly rather than silently allowed.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := os.Getenv("API_SECRET")
		if secret == "" {
			demoModeWarnOnce.Do(func() {
				log.Println("WARNING: API_SECRET not set! Running in DEMO mode (INSECURE for production!)")
			})
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondErrorJSON(w, http.StatusUnauthorized,
				"API_SECRET is required. Add Authorization: Bearer YOUR_API_SECRET header.")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			respondErrorJSON(w, http.StatusUnauthorized, "invalid API secret")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
