package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/internal/auth/store"
	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

// AuthorizeService drives the front-channel half of the flow: resolving a
// pushed request_uri, recording consent, and minting the single-use
// authorization code. All state changes go through the session state machine
// in storage, so replays and out-of-order calls surface as ErrInvalidGrant.
type AuthorizeService struct {
	Store store.Store
}

// CodeIssued is what the front channel needs to build the redirect back to
// the client.
type CodeIssued struct {
	Code        string
	RedirectURI string
	State       string
}

// Resolve looks up the session behind a request_uri and checks it is still
// usable. The client_id is optional on the front channel since the pushed
// request already recorded it; when present it must match. Resolve does not
// change state.
func (s *AuthorizeService) Resolve(ctx context.Context, clientID, requestURI string) (domain.AuthorizationSession, error) {
	if !strings.HasPrefix(requestURI, RequestURIPrefix) {
		return domain.AuthorizationSession{}, ErrInvalidRequest
	}

	session, err := s.Store.Sessions().GetSessionByRequestURI(ctx, requestURI)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthorizationSession{}, ErrInvalidGrant
		}
		return domain.AuthorizationSession{}, err
	}

	if clientID = strings.TrimSpace(clientID); clientID != "" && session.ClientID != clientID {
		return domain.AuthorizationSession{}, ErrInvalidGrant
	}
	if session.Expired(time.Now().UTC()) {
		return domain.AuthorizationSession{}, ErrExpiredRequestURI
	}

	return session, nil
}

// Approve records the consenting subject on a created session. A session can
// only be approved once; the conditional update in storage enforces that.
func (s *AuthorizeService) Approve(ctx context.Context, sessionID, subjectDID string) error {
	if strings.TrimSpace(subjectDID) == "" {
		return ErrInvalidRequest
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		return err
	}
	if session.Expired(time.Now().UTC()) {
		return ErrInvalidGrant
	}

	if err := s.Store.Sessions().AuthorizeSession(ctx, sessionID, subjectDID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		return err
	}
	return nil
}

// IssueCode mints the authorization code for an authorized session. The raw
// code is returned exactly once; only its fingerprint is stored, bound to
// the session by the conditional authorized -> code_issued transition.
func (s *AuthorizeService) IssueCode(ctx context.Context, sessionID string) (*CodeIssued, error) {
	log := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		return nil, ErrInvalidGrant
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	err = s.Store.Sessions().BindAuthorizationCode(ctx, sessionID, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("code issuance on session not in authorized state", "session_id", sessionID)
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	return &CodeIssued{
		Code:        code,
		RedirectURI: session.RedirectURI,
		State:       session.State,
	}, nil
}
