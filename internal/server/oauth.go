// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rolelink-dev/rolelink/internal/discordapi"
	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

const (
	stateCookieName = "rolelink_oauth_state"
	stateCookieAge  = 10 * 60
)

func (s *Server) registerOAuthRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(s.cfg.OAuthRateLimit, s.done))
		r.Get("/connect", s.handleConnect)
		r.Get("/callback", s.handleCallback)
	})
}

// handleConnect starts the OAuth flow with a fresh state nonce bound to the
// browser through a short-lived cookie.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/callback",
		MaxAge:   stateCookieAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(s.cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.services.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback exchanges the code, resolves the user, and stores the
// credential under the user's id.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	if code == "" {
		writeText(w, http.StatusBadRequest, "Missing code.")
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeText(w, http.StatusBadRequest, "Invalid OAuth state. Start again from /connect.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/callback", MaxAge: -1})

	tok, err := s.services.oauth.Exchange(ctx, code)
	if err != nil {
		s.oauthFailed(w, r, err)
		return
	}

	user, err := s.services.oauth.CurrentUser(ctx, tok.AccessToken)
	if err != nil {
		s.oauthFailed(w, r, err)
		return
	}

	cred := discordapi.CredentialFromToken(user.ID, tok, s.services.now())
	if err := s.services.tokens.Put(ctx, cred); err != nil {
		s.oauthFailed(w, r, rlerr.With(err, rlerr.FieldUserID(user.ID)))
		return
	}

	slog.InfoContext(ctx, "account connected", "user_id", user.ID, "username", user.Username)
	writeText(w, http.StatusOK, "Thanks "+user.Username+"! Your account is connected.")
}

func (s *Server) oauthFailed(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "callback error",
		"code", string(rlerr.CodeOf(err)),
		"error", err,
	)
	writeText(w, http.StatusInternalServerError, "OAuth failed: "+err.Error())
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
