// Package web provides the HTTP server, JSON API, and HTML pages for
// browsing an uploaded Spotify export.
package web

import (
	"errors"
	"fmt"
	"net/http"

	"spotify-export-stats/internal/apperr"
	"spotify-export-stats/internal/dataset"
)

const sessionCookieName = "session_token"

// sessionTenantID extracts and verifies the tenant id from the request
// cookie. A missing cookie and a bad signature both surface as
// apperr.ErrNotFound so the caller leaks nothing about which case
// occurred.
func (h *Handlers) sessionTenantID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", fmt.Errorf("%w: no session", apperr.ErrNotFound)
	}
	id, err := h.signer.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidToken) {
			return "", fmt.Errorf("%w: no session", apperr.ErrNotFound)
		}
		return "", err
	}
	return id, nil
}

// sessionLoader resolves the request's session to its dataset loader.
// Unknown and deleted tenants return apperr.ErrNotFound.
func (h *Handlers) sessionLoader(r *http.Request) (*dataset.Loader, error) {
	id, err := h.sessionTenantID(r)
	if err != nil {
		return nil, err
	}
	return h.tenants.Resolve(id)
}

// hasSession reports whether the request carries a resolvable session.
func (h *Handlers) hasSession(r *http.Request) bool {
	_, err := h.sessionLoader(r)
	return err == nil
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, signedToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
