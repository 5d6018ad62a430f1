package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/driftwoodlabs/didauth/internal/auth/service"
	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/httpx"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

// PARHandler serves POST /oauth/par (RFC 9126).
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type PARHandler struct {
	ParService *service.ParService
}

func (h *PARHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	// The guard already verified the proof; the session is bound to its
	// key from here on.
	proof := ProofFromContext(ctx)
	if proof == nil {
		authsdk.ErrInvalidDPoPProof.WriteError(w)
		return
	}

	result, err := h.ParService.Push(ctx, service.PushRequest{
		ResponseType:        r.Form.Get("response_type"),
		ClientID:            r.Form.Get("client_id"),
		RedirectURI:         r.Form.Get("redirect_uri"),
		Scope:               r.Form.Get("scope"),
		State:               r.Form.Get("state"),
		LoginHint:           r.Form.Get("login_hint"),
		CodeChallenge:       r.Form.Get("code_challenge"),
		CodeChallengeMethod: r.Form.Get("code_challenge_method"),
		DPoPJKT:             proof.JKT,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedResponseType):
			authsdk.ErrUnsupportedResponseType.WriteError(w)
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			authsdk.ErrInvalidScope.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("pushed authorization request failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.PARResponse{
		RequestURI: result.RequestURI,
		ExpiresIn:  int(result.ExpiresIn.Seconds()),
	})
}
