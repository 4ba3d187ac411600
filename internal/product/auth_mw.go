package product

import (
	"net/http"

	"ProductsAPI/pkg/kit"
)

const (
	APIKeyHeader = "X-Api-Key"

	msgUnauthorized = "Unauthorized - Invalid API Key"
)

// APIKey rejects requests whose x-api-key header does not equal key. An
// empty key rejects everything.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || got == "" || !kit.SecretEqual(got, key) {
				kit.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
