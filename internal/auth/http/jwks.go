package http

import (
	"net/http"

	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/httpx"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
)

// JWKSHandler exposes the public verification keys so resource servers can
// check access token signatures themselves.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
