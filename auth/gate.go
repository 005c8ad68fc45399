// Package auth implements the shared-secret gate in front of the chat and
// stream pages: one key, checked once, then a signed session cookie.
package auth

import (
	"log/slog"
	"net/http"

	"streamroom/errors"
)

// SessionCookie is the name of the gate session cookie.
const SessionCookie = "streamroom_session"

// Gate validates the shared secret and issues session cookies. When no key
// hash is configured the gate is disabled and every request passes.
type Gate struct {
	log     *slog.Logger
	keyHash string
	tokens  *TokenIssuer
}

func NewGate(log *slog.Logger, keyHash string, tokens *TokenIssuer) *Gate {
	return &Gate{log: log, keyHash: keyHash, tokens: tokens}
}

func (g *Gate) Enabled() bool {
	return g.keyHash != ""
}

// Login verifies the posted key and, on success, sets the session cookie.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request) {
	if !g.Enabled() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	key := r.FormValue("key")
	ok, err := CompareKey(key, g.keyHash)
	if err != nil {
		g.log.Warn("Gate key comparison failed", "error", err)
		http.Error(w, "invalid key", http.StatusUnauthorized)
		return
	}
	if !ok {
		g.log.Info("Gate rejected a key attempt", "remote", r.RemoteAddr)
		http.Error(w, errors.ErrInvalidGateKey.Error(), http.StatusUnauthorized)
		return
	}

	token, err := g.tokens.Generate()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Middleware rejects requests lacking a valid session cookie. The chat
// core behind it makes no assumption that this check happened; gating is
// purely a deployment concern of the HTTP layer.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := g.tokens.Validate(cookie.Value); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
