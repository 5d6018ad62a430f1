package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/internal/auth/store"
	"github.com/driftwoodlabs/didauth/pkg/idx"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
	"github.com/google/uuid"
)

var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrExpiredRequestURI       = errors.New("expired_request_uri")
)

// RequestURIPrefix is the RFC 9126 URN namespace for pushed request handles.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// RequiredScope must be present in every pushed request's scope set.
const RequiredScope = "atproto"

// DefaultRequestTTL is the pushed request lifetime when none is configured.
const DefaultRequestTTL = 90 * time.Second

// ParService implements the pushed authorization request endpoint. Every
// authorization flow starts here; the front channel only ever sees the
// opaque request_uri handle.
type ParService struct {
	Store      store.Store
	Registry   AppRegistry
	RequestTTL time.Duration
}

// PushRequest carries the form parameters of one pushed authorization
// request, plus the thumbprint of the DPoP key that proved the push. The
// session is bound to that key; no other key can exchange its code.
type PushRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	LoginHint           string
	CodeChallenge       string
	CodeChallengeMethod string
	DPoPJKT             string
}

// PushResult is the handle the client carries to the authorize endpoint.
type PushResult struct {
	RequestURI string
	ExpiresIn  time.Duration
}

// Push validates the request and stores a new authorization session in the
// created state. PKCE is mandatory and S256-only; plain is never accepted.
func (s *ParService) Push(ctx context.Context, req PushRequest) (*PushResult, error) {
	log := slogx.FromContext(ctx)

	if !strings.EqualFold(strings.TrimSpace(req.ResponseType), "code") {
		return nil, ErrUnsupportedResponseType
	}

	clientID := strings.TrimSpace(req.ClientID)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if clientID == "" || redirectURI == "" || req.DPoPJKT == "" {
		return nil, ErrInvalidRequest
	}

	if err := s.Registry.ValidateClient(ctx, clientID, redirectURI); err != nil {
		log.Info("pushed request rejected by registry", "client_id", clientID)
		return nil, err
	}

	if !scopeContains(req.Scope, RequiredScope) {
		return nil, ErrInvalidScope
	}

	challenge := strings.TrimSpace(req.CodeChallenge)
	if challenge == "" || req.CodeChallengeMethod != "S256" {
		return nil, ErrInvalidRequest
	}
	// An S256 challenge is the unpadded base64url of a SHA-256 digest,
	// which is always exactly 43 characters.
	if len(challenge) != 43 {
		return nil, ErrInvalidRequest
	}

	// Zero means "not configured"; a negative TTL is taken at face value
	// so the operator (or a test) can deliberately mint dead-on-arrival
	// sessions.
	ttl := s.RequestTTL
	if ttl == 0 {
		ttl = DefaultRequestTTL
	}

	now := time.Now().UTC()
	session := domain.AuthorizationSession{
		ID:                  idx.New().String(),
		RequestURI:          RequestURIPrefix + uuid.NewString(),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               strings.Join(strings.Fields(req.Scope), " "),
		State:               req.State,
		LoginHint:           strings.TrimSpace(req.LoginHint),
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		DPoPJKT:             req.DPoPJKT,
		Status:              domain.SessionCreated,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &PushResult{
		RequestURI: session.RequestURI,
		ExpiresIn:  ttl,
	}, nil
}

func scopeContains(scope, want string) bool {
	for _, s := range strings.Fields(scope) {
		if s == want {
			return true
		}
	}
	return false
}
