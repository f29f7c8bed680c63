package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Middleware validates stream tokens. With an empty secret every request
// passes through.
type Middleware struct {
	Secret []byte
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{Secret: secret}
}

// Wrap applies token validation to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.Secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authenticate(r)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.Subject)))
	})
}

// authenticate returns the claims of the request token. A request without
// a token is ErrUnauthorized.
func (m *Middleware) authenticate(r *http.Request) (*Claims, error) {
	token := extractToken(r)
	if token == "" {
		return nil, ErrUnauthorized
	}
	return ParseJWT(token, m.Secret)
}

// extractToken reads a bearer token, falling back to the token query
// parameter since browsers cannot set headers on EventSource/WebSocket.
func extractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
