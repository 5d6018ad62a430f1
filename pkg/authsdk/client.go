package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client is a minimal relying-party client for the authorization server.
// It drives the PAR, authorization code and refresh flows with DPoP proofs
// on every token-guarded request, and transparently retries once when the
// server demands a fresh nonce.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Proof      *ProofSigner

	mu    sync.Mutex
	nonce string // most recent DPoP-Nonce advertised by the server
}

// NewClient creates a client for the server at baseURL using the given
// proof signer for all DPoP-guarded requests.
func NewClient(baseURL string, proof *ProofSigner) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Proof: proof,
	}
}

// PushAuthorizationRequest sends the authorization parameters to /oauth/par
// and returns the request_uri handle.
func (c *Client) PushAuthorizationRequest(ctx context.Context, req PARRequest) (*PARResponse, error) {
	form := url.Values{}
	form.Set("response_type", "code")
	form.Set("client_id", req.ClientID)
	form.Set("redirect_uri", req.RedirectURI)
	form.Set("scope", req.Scope)
	form.Set("state", req.State)
	form.Set("code_challenge", req.CodeChallenge)
	form.Set("code_challenge_method", req.CodeChallengeMethod)
	if req.LoginHint != "" {
		form.Set("login_hint", req.LoginHint)
	}

	var out PARResponse
	if err := c.postForm(ctx, "/oauth/par", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthorizeURL builds the front-channel URL the user agent should visit to
// continue a pushed authorization request.
func (c *Client) AuthorizeURL(clientID, requestURI string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("request_uri", requestURI)
	return c.BaseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode redeems an authorization code for a DPoP-bound token pair.
func (c *Client) ExchangeCode(ctx context.Context, clientID, code, codeVerifier, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", clientID)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	form.Set("redirect_uri", redirectURI)

	var out TokenResponse
	if err := c.postForm(ctx, "/oauth/token", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates a refresh token, returning a new token pair. The old
// refresh token is dead after this call succeeds.
func (c *Client) Refresh(ctx context.Context, clientID, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)
	form.Set("refresh_token", refreshToken)

	var out TokenResponse
	if err := c.postForm(ctx, "/oauth/token", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Introspect asks the server about a token's state (RFC 7662).
func (c *Client) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	form := url.Values{}
	form.Set("token", token)

	var out IntrospectionResponse
	if err := c.postForm(ctx, "/oauth/introspect", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metadata fetches the RFC 8414 discovery document.
func (c *Client) Metadata(ctx context.Context) (*AuthorizationServerMetadata, error) {
	var out AuthorizationServerMetadata
	if err := c.getJSON(ctx, "/.well-known/oauth-authorization-server", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the server's public token verification keys.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.getJSON(ctx, "/.well-known/jwks.json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Nonce returns the most recent server nonce observed by the client.
func (c *Client) Nonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce
}

func (c *Client) setNonce(nonce string) {
	if nonce == "" {
		return
	}
	c.mu.Lock()
	c.nonce = nonce
	c.mu.Unlock()
}

// postForm sends a DPoP-proofed form POST and decodes the JSON response.
// When the server answers use_dpop_nonce it advertises a fresh nonce in the
// DPoP-Nonce header, so the request is retried once with that value.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	body, err := c.doProofed(ctx, path, form, c.Nonce())

	var oauthErr *OAuth2Error
	if errors.As(err, &oauthErr) && oauthErr.Code == ErrorCodeUseDPoPNonce {
		nonce := c.Nonce()
		if nonce == "" {
			return err
		}
		body, err = c.doProofed(ctx, path, form, nonce)
	}
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("authsdk: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) doProofed(ctx context.Context, path string, form url.Values, nonce string) ([]byte, error) {
	endpoint := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("authsdk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if c.Proof != nil {
		proof, err := c.Proof.Proof(http.MethodPost, endpoint, nonce)
		if err != nil {
			return nil, err
		}
		req.Header.Set("DPoP", proof)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authsdk: %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.setNonce(resp.Header.Get("DPoP-Nonce"))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("authsdk: read response: %w", err)
	}

	if err := parseErrorResponse(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("authsdk: build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("authsdk: read response: %w", err)
	}

	if err := parseErrorResponse(resp, body); err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
