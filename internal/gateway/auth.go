package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authMiddleware rejects requests that carry no credential matching the
// configuration. Bearer and Basic are both accepted when configured.
func authMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.allows(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allows reports whether r presents a valid credential. All secret
// comparisons run in constant time.
func (c AuthConfig) allows(r *http.Request) bool {
	if c.BearerToken != "" {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ok && secureEqual(token, c.BearerToken) {
			return true
		}
	}

	if c.BasicUser != "" && c.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		if ok && secureEqual(user, c.BasicUser) && secureEqual(pass, c.BasicPass) {
			return true
		}
	}

	return false
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
