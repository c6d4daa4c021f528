package auth

import (
	"crypto/sha256"
	"net/http"
	"sync"
)

// DenyFunc writes the rejection for an unauthenticated request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Authenticator checks bearer tokens against a static key and/or a bcrypt
// hash. A token that matched the hash once is remembered by its SHA-256 so
// later requests skip the bcrypt cost.
type Authenticator struct {
	apiKey     string
	apiKeyHash string
	deny       DenyFunc

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewAuthenticator creates a new Authenticator. Either key may be empty;
// with both empty every request is rejected.
func NewAuthenticator(apiKey, apiKeyHash string, deny DenyFunc) *Authenticator {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Authenticator{
		apiKey:     apiKey,
		apiKeyHash: apiKeyHash,
		deny:       deny,
		verified:   make(map[[sha256.Size]byte]struct{}),
	}
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Error         string
}

// Authenticate checks the Authorization header value.
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{Error: "missing bearer token"}
	}

	if a.apiKey != "" && VerifyAPIKeyConstantTime(token, a.apiKey) {
		return AuthResult{Authenticated: true}
	}

	if a.apiKeyHash != "" {
		sum := sha256.Sum256([]byte(token))
		a.mu.RLock()
		_, ok := a.verified[sum]
		a.mu.RUnlock()
		if ok {
			return AuthResult{Authenticated: true}
		}
		if VerifyAPIKey(token, a.apiKeyHash) {
			a.mu.Lock()
			a.verified[sum] = struct{}{}
			a.mu.Unlock()
			return AuthResult{Authenticated: true}
		}
	}

	return AuthResult{Error: "invalid token"}
}

// RequireAuth is a middleware that requires a valid bearer token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := a.Authenticate(r.Header.Get("Authorization"))
		if !result.Authenticated {
			a.deny(w, r, http.StatusUnauthorized, result.Error)
			return
		}
		next.ServeHTTP(w, r)
	})
}
