package http

import (
	"net/http"
	"strings"

	"github.com/driftwoodlabs/didauth/internal/auth/service"
	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/httpx"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

// IntrospectHandler serves POST /oauth/introspect (RFC 7662). An inactive,
// malformed, expired, or unknown token all produce the same {"active":false}
// body; no failure reason ever reaches the caller.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	token := strings.TrimSpace(r.Form.Get("token"))
	if token == "" {
		writeInactive(w)
		return
	}

	claims, err := h.TokenService.Introspect(ctx, token)
	if err != nil {
		log.Info("introspection of invalid token", "error", err)
		writeInactive(w)
		return
	}

	response := authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     claims.Scope,
		ClientID:  claims.ClientID,
		TokenType: service.TokenTypeDPoP,
		Sub:       claims.Subject,
		Iss:       claims.Issuer,
		Jti:       claims.ID,
		Cnf:       claims.Confirmation,
	}
	if claims.ExpiresAt != nil {
		response.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		response.Iat = claims.IssuedAt.Unix()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

func writeInactive(w http.ResponseWriter) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
}
