package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// tokenCost is the bcrypt cost used by HashToken.
const tokenCost = 12

// HashToken returns a bcrypt hash of token suitable for api.token_hash.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), tokenCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// tokenAuth accepts a plain token, a bcrypt-hashed token, or both.
type tokenAuth struct {
	token string
	hash  []byte

	// tokens that already matched hash; bcrypt is too slow to run per request
	verified sync.Map
}

func newTokenAuth(token, hash string) *tokenAuth {
	return &tokenAuth{token: token, hash: []byte(hash)}
}

func (t *tokenAuth) enabled() bool {
	return t.token != "" || len(t.hash) > 0
}

func (t *tokenAuth) check(presented string) bool {
	if presented == "" {
		return false
	}
	if t.token != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(t.token)) == 1 {
		return true
	}
	if len(t.hash) == 0 {
		return false
	}
	if _, ok := t.verified.Load(presented); ok {
		return true
	}
	if bcrypt.CompareHashAndPassword(t.hash, []byte(presented)) != nil {
		return false
	}
	t.verified.Store(presented, struct{}{})
	return true
}

func (t *tokenAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		token = strings.TrimPrefix(token, "Bearer ")

		if !t.check(token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
