/*
Package authsdk provides a relying-party client for the DPoP-bound
authorization server, plus the OAuth2 error and response types the server
itself uses when writing protocol responses.

# Overview

The client drives the full sender-constrained flow: push an authorization
request, send the user through the front channel, redeem the code, and
rotate refresh tokens. Every request to a DPoP-guarded endpoint carries a
proof minted by a ProofSigner, and issued access tokens are bound to that
signer's key thumbprint (cnf.jkt).

# Flow

	proof, err := authsdk.NewProofSigner()
	client := authsdk.NewClient("https://auth.example.com", proof)

	// Push the authorization parameters (PKCE S256 only)
	par, err := client.PushAuthorizationRequest(ctx, authsdk.PARRequest{
		ClientID:            "app-web",
		RedirectURI:         "https://app.example.com/callback",
		Scope:               "atproto",
		State:               state,
		CodeChallenge:       cryptox.S256Challenge(verifier),
		CodeChallengeMethod: "S256",
	})

	// Send the user agent to the authorize endpoint
	url := client.AuthorizeURL("app-web", par.RequestURI)

	// After the redirect comes back with a code
	tokens, err := client.ExchangeCode(ctx, "app-web", code, verifier, redirectURI)

	// Later, rotate the refresh token (the old one dies on success)
	tokens, err = client.Refresh(ctx, "app-web", tokens.RefreshToken)

# Nonces

The server advertises a DPoP nonce on every guarded response and requires a
current one at the token endpoint. The client tracks the latest DPoP-Nonce
header automatically and retries a request exactly once when the server
answers use_dpop_nonce.

# Key continuity

Refresh tokens are bound to the proof key that redeemed the original code.
Keep using the same ProofSigner for the lifetime of a session; a new key
makes every stored grant unusable. NewProofSignerFromKey exists so a client
can persist its key between runs.
*/
package authsdk
