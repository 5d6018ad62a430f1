package http

import (
	"net/http"

	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/httpx"
)

// MetadataHandler serves the RFC 8414 authorization server discovery
// document at /.well-known/oauth-authorization-server.
func MetadataHandler(issuer string) http.HandlerFunc {
	doc := authsdk.AuthorizationServerMetadata{
		Issuer:                             issuer,
		AuthorizationEndpoint:              issuer + "/oauth/authorize",
		TokenEndpoint:                      issuer + "/oauth/token",
		PushedAuthorizationRequestEndpoint: issuer + "/oauth/par",
		IntrospectionEndpoint:              issuer + "/oauth/introspect",
		JWKSURI:                            issuer + "/.well-known/jwks.json",
		ScopesSupported:                    []string{"atproto"},
		ResponseTypesSupported:             []string{"code"},
		GrantTypesSupported:                []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:      []string{"S256"},
		TokenEndpointAuthMethodsSupported:  []string{"none"},
		DPoPSigningAlgValuesSupported:      []string{"ES256"},
		RequirePushedAuthorizationRequests: true,
		AuthorizationResponseIssParameterSupported: true,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// ProtectedResourceHandler serves the RFC 9728 protected resource document
// at /.well-known/oauth-protected-resource.
func ProtectedResourceHandler(issuer string) http.HandlerFunc {
	doc := authsdk.ProtectedResourceMetadata{
		Resource:               issuer,
		AuthorizationServers:   []string{issuer},
		ScopesSupported:        []string{"atproto"},
		BearerMethodsSupported: []string{"header"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
