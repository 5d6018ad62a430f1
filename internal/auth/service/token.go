package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/internal/auth/store"
	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/driftwoodlabs/didauth/pkg/idx"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

// errRefreshReplayed is internal; callers only ever see ErrInvalidGrant, but
// the rotation path uses it to trigger the session-wide revocation cascade.
var errRefreshReplayed = errors.New("refresh token replayed")

// TokenService implements the token endpoint grants. Every token it issues
// is sender-constrained: the access token carries cnf.jkt and the refresh
// token row pins the same thumbprint, so neither is usable without the
// original DPoP key.
type TokenService struct {
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenTypeDPoP is the token_type for every successful token response.
const TokenTypeDPoP = "DPoP"

// ExchangeAuthorizationCode implements the authorization_code grant.
//
// The code is consumed before anything about the request is verified. The
// consume is a single conditional UPDATE, so two concurrent presenters of
// the same code race on one row and exactly one wins. Verifying after
// consuming means a failed PKCE or client check still spends the code, which
// is the correct response to a stolen-code guess: the legitimate holder's
// retry fails too, and nobody gets tokens.
//
// Every failure mode maps to ErrInvalidGrant so the response does not leak
// which check failed.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, code, redirectURI, codeVerifier, dpopJKT string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(clientID) == "" || dpopJKT == "" {
		return nil, ErrInvalidGrant
	}
	if l := len(codeVerifier); l < cryptox.MinVerifierLength || l > cryptox.MaxVerifierLength {
		return nil, ErrInvalidGrant
	}

	session, err := s.Store.Sessions().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("code exchange with unknown or already spent code", "client_id", clientID)
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	// The code is spent from here on, even if a check below fails.
	switch {
	case session.Expired(now):
		return nil, ErrInvalidGrant
	case session.ClientID != clientID:
		return nil, ErrInvalidGrant
	case session.RedirectURI != redirectURI:
		return nil, ErrInvalidGrant
	case session.DPoPJKT != dpopJKT:
		log.Warn("code exchange with a different DPoP key than the pushed request", "client_id", clientID)
		return nil, ErrInvalidGrant
	case session.SubjectDID == "":
		return nil, ErrInvalidGrant
	case !cryptox.VerifyS256Challenge(codeVerifier, session.CodeChallenge):
		log.Info("code exchange failed PKCE verification", "client_id", clientID)
		return nil, ErrInvalidGrant
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := s.ensureSubject(ctx, tx, session.SubjectDID, now); err != nil {
			return err
		}

		p, err := s.issueTokens(ctx, tx, session.ID, session.ClientID, session.SubjectDID, session.Scope, dpopJKT, now)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// ExchangeRefreshToken implements the refresh_token grant with rotation.
//
// The presented token is revoked and a successor inserted in one
// transaction. If the presented token was already revoked, someone is
// replaying it; every live descendant of the session is revoked in response
// and the caller gets the same ErrInvalidGrant as any other failure.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, refreshOpaque, dpopJKT string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	if strings.TrimSpace(refreshOpaque) == "" || strings.TrimSpace(clientID) == "" || dpopJKT == "" {
		return nil, ErrInvalidGrant
	}

	fp := cryptox.FingerprintToken(refreshOpaque)

	var pair *domain.TokenPair
	var sessionID string

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		sessionID = rt.SessionID

		if rt.ClientID != clientID {
			return ErrInvalidGrant
		}
		if rt.DPoPJKT != dpopJKT {
			log.Warn("refresh presented with a different DPoP key", "session_id", rt.SessionID)
			return ErrInvalidGrant
		}
		if now.After(rt.ExpiresAt) || now.Equal(rt.ExpiresAt) {
			return ErrInvalidGrant
		}

		revoked, err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp)
		if err != nil {
			return err
		}
		if !revoked {
			return errRefreshReplayed
		}

		p, err := s.issueTokens(ctx, tx, rt.SessionID, rt.ClientID, rt.SubjectDID, rt.Scope, dpopJKT, now)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if errors.Is(err, errRefreshReplayed) {
		log.Warn("refresh token replay detected, revoking session grants", "session_id", sessionID)
		if revokeErr := s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID); revokeErr != nil {
			log.Error("failed to revoke session refresh tokens", "error", revokeErr, "session_id", sessionID)
		}
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Introspect verifies an access token and returns its claims. Any failure
// is reported as-is; the handler collapses everything to active:false.
func (s *TokenService) Introspect(ctx context.Context, token string) (*jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	if err := claims.ValidateConfirmation(); err != nil {
		return nil, err
	}
	return &claims, nil
}

// RevokeSession kills every live refresh token descended from a session.
func (s *TokenService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID)
}

// issueTokens signs a fresh access token and persists a new refresh token
// row, both bound to the same DPoP key thumbprint.
func (s *TokenService) issueTokens(
	ctx context.Context,
	tx store.Tx,
	sessionID, clientID, subjectDID, scope, dpopJKT string,
	now time.Time,
) (*domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(s.Issuer, subjectDID, clientID, scope, dpopJKT, s.AccessTTL, now)
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:         idx.New().String(),
		SessionID:  sessionID,
		ClientID:   clientID,
		SubjectDID: subjectDID,
		TokenHash:  cryptox.FingerprintToken(refreshOpaque),
		DPoPJKT:    dpopJKT,
		Scope:      scope,
		ExpiresAt:  now.Add(s.RefreshTTL),
		CreatedAt:  now,
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    TokenTypeDPoP,
		ExpiresIn:    s.AccessTTL,
		Scope:        scope,
		Sub:          subjectDID,
	}, nil
}

// ensureSubject returns the subject row for a DID, creating it on first
// exchange.
func (s *TokenService) ensureSubject(ctx context.Context, tx store.Tx, did string, now time.Time) (domain.Subject, error) {
	subject, err := tx.Subjects().GetSubjectByDID(ctx, did)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Subject{}, err
	}

	subject = domain.Subject{
		ID:        idx.New().String(),
		DID:       did,
		CreatedAt: now,
	}
	if err := tx.Subjects().CreateSubject(ctx, subject); err != nil {
		return domain.Subject{}, err
	}
	return subject, nil
}
