package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/store/drivers/sqlite"
	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testJKT = "0ZcOCORZNYy-DWpqq30jZyJGHTN0d2HglBV3uiguA4I"

type tokenFixture struct {
	st        *sqlite.Store
	par       *ParService
	authorize *AuthorizeService
	tokens    *TokenService
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	st := newTestStore(t)

	pemKey, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerES256("test-key", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	return &tokenFixture{
		st:        st,
		par:       &ParService{Store: st, Registry: PermissiveRegistry{}, RequestTTL: 90 * time.Second},
		authorize: &AuthorizeService{Store: st},
		tokens: &TokenService{
			Signer:     signer,
			Verifier:   jwtx.NewCommonES256(keys, "https://auth.test"),
			Store:      st,
			Issuer:     "https://auth.test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
	}
}

// issueCode drives a pushed request through consent and code issuance,
// returning the raw code together with the original request parameters.
func (f *tokenFixture) issueCode(t *testing.T, verifier string) (string, PushRequest) {
	t.Helper()
	ctx := context.Background()

	push := validPush()
	push.CodeChallenge = cryptox.S256Challenge(verifier)

	pushed, err := f.par.Push(ctx, push)
	require.NoError(t, err)

	session, err := f.st.Sessions().GetSessionByRequestURI(ctx, pushed.RequestURI)
	require.NoError(t, err)

	require.NoError(t, f.authorize.Approve(ctx, session.ID, testDID))

	issued, err := f.authorize.IssueCode(ctx, session.ID)
	require.NoError(t, err)

	return issued.Code, push
}

func pkceVerifier() string {
	return strings.Repeat("a", 64)
}

func TestExchangeAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	pair, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, TokenTypeDPoP, pair.TokenType)
	require.Equal(t, 15*time.Minute, pair.ExpiresIn)
	require.Equal(t, testDID, pair.Sub)
	require.Equal(t, push.Scope, pair.Scope)

	claims, err := f.tokens.Introspect(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testDID, claims.Subject)
	require.Equal(t, push.ClientID, claims.ClientID)
	require.Equal(t, "https://auth.test", claims.Issuer)
	require.NotNil(t, claims.Confirmation)
	require.Equal(t, testJKT, claims.Confirmation.JKT)
	require.NotEmpty(t, claims.ID)

	// First exchange creates the subject row.
	subject, err := f.st.Subjects().GetSubjectByDID(ctx, testDID)
	require.NoError(t, err)
	require.Equal(t, testDID, subject.DID)
}

func TestExchangeAuthorizationCodeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)

	_, err = f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeFailuresCollapseToInvalidGrant(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		f := newTokenFixture(t)
		_, push := f.issueCode(t, pkceVerifier())
		_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, "nonsense", push.RedirectURI, pkceVerifier(), testJKT)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong client", func(t *testing.T) {
		f := newTokenFixture(t)
		code, push := f.issueCode(t, pkceVerifier())
		_, err := f.tokens.ExchangeAuthorizationCode(ctx, "https://other.example/metadata.json", code, push.RedirectURI, pkceVerifier(), testJKT)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong redirect", func(t *testing.T) {
		f := newTokenFixture(t)
		code, push := f.issueCode(t, pkceVerifier())
		_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, "https://app.example/other", pkceVerifier(), testJKT)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("missing proof thumbprint", func(t *testing.T) {
		f := newTokenFixture(t)
		code, push := f.issueCode(t, pkceVerifier())
		_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, pkceVerifier(), "")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestExchangeRejectsKeyOtherThanPushed(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	// The pushed request bound the session to testJKT. A correct code and
	// verifier presented under a different proof key must not mint tokens.
	_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, "sQ5UUNShx2bIbpLTYOhkGJZ0mlJ0NTWbbPsf8lXgJQ0")
	require.ErrorIs(t, err, ErrInvalidGrant)

	// The attempt consumed the code, so the legitimate key cannot use it
	// either.
	_, err = f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestPKCEMismatchSpendsTheCode(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	wrong := strings.Repeat("b", 64)
	_, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, wrong, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)

	// The failed attempt consumed the code, so the correct verifier no
	// longer helps.
	_, err = f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	pair, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)

	rotated, err := f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.Equal(t, push.Scope, rotated.Scope)
	require.Equal(t, testDID, rotated.Sub)

	// The old token is dead after rotation.
	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshReplayRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	pair, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)

	rotated, err := f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.NoError(t, err)

	// Replaying the spent token burns the whole session: the freshly
	// rotated successor must be dead too.
	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)

	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, rotated.RefreshToken, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestRefreshRejectsDifferentProofKey(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	pair, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)

	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, "some-other-thumbprint")
	require.ErrorIs(t, err, ErrInvalidGrant)

	// A jkt mismatch is not a replay; the token must still work for the
	// legitimate key afterwards.
	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.NoError(t, err)
}

func TestRevokeSessionCascades(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier := pkceVerifier()
	code, push := f.issueCode(t, verifier)

	pair, err := f.tokens.ExchangeAuthorizationCode(ctx, push.ClientID, code, push.RedirectURI, verifier, testJKT)
	require.NoError(t, err)

	rt, err := f.st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeSession(ctx, rt.SessionID))

	_, err = f.tokens.ExchangeRefreshToken(ctx, push.ClientID, pair.RefreshToken, testJKT)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestIntrospectRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	_, err := f.tokens.Introspect(ctx, "not.a.token")
	require.Error(t, err)
}
