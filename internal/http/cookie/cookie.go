// Package cookie выставляет и стирает cookie сессии.
package cookie

import (
	"net/http"
	"time"
)

// Options параметры cookie сессии.
type Options struct {
	Name   string
	Secure bool
}

// SetSession кладёт токен сессии в HttpOnly cookie на ttl.
func SetSession(w http.ResponseWriter, opts Options, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession стирает cookie сессии.
func ClearSession(w http.ResponseWriter, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
