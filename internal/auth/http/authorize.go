package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/internal/auth/service"
	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

// AuthorizeHandler serves GET /oauth/authorize. The front channel only ever
// carries the opaque request_uri from a prior pushed request; all real
// parameters live server-side in the session.
//
// Sessions arrive here twice. A freshly created session has no consenting
// subject yet, so the user is sent to the login flow. Once consent has been
// recorded (the session reaches the authorized state), the handler mints the
// single-use code and redirects back to the client with code, state, and
// iss.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Issuer           string
	LoginURL         string
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// client_id is optional here; the pushed request already recorded it
	// and Resolve only cross-checks it when the front channel repeats it.
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	requestURI := strings.TrimSpace(r.URL.Query().Get("request_uri"))
	if requestURI == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, err := h.AuthorizeService.Resolve(ctx, clientID, requestURI)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrExpiredRequestURI):
			authsdk.ErrExpiredRequestURI.WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("authorize request resolution failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	switch session.Status {
	case domain.SessionCreated:
		// No consenting subject yet; hand off to the login flow, which
		// completes consent out of band and sends the user back here.
		login := h.LoginURL
		if login == "" {
			login = "/login"
		}
		target := login + "?request_uri=" + url.QueryEscape(requestURI)
		if session.LoginHint != "" {
			target += "&login_hint=" + url.QueryEscape(session.LoginHint)
		}
		http.Redirect(w, r, target, http.StatusFound)

	case domain.SessionAuthorized:
		issued, err := h.AuthorizeService.IssueCode(ctx, session.ID)
		if err != nil {
			if errors.Is(err, service.ErrInvalidGrant) {
				authsdk.ErrInvalidGrant.WriteError(w)
				return
			}
			log.Error("authorization code issuance failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}

		redirect, err := url.Parse(issued.RedirectURI)
		if err != nil {
			authsdk.ErrServerError.WriteError(w)
			return
		}
		q := redirect.Query()
		q.Set("code", issued.Code)
		q.Set("iss", h.Issuer)
		if issued.State != "" {
			q.Set("state", issued.State)
		}
		redirect.RawQuery = q.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)

	default:
		// code_issued and exchanged sessions are dead to the front channel.
		authsdk.ErrInvalidGrant.WriteError(w)
	}
}
