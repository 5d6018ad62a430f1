package service

import (
	"context"
	"testing"
	"time"

	"github.com/driftwoodlabs/didauth/internal/auth/domain"
	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const testDID = "did:plc:ewvi7nxzyoun6zhxrhs64oiz"

func TestAuthorizeFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	par := &ParService{Store: st, Registry: PermissiveRegistry{}, RequestTTL: 90 * time.Second}
	svc := &AuthorizeService{Store: st}

	push := validPush()
	pushed, err := par.Push(ctx, push)
	require.NoError(t, err)

	session, err := svc.Resolve(ctx, push.ClientID, pushed.RequestURI)
	require.NoError(t, err)
	require.Equal(t, domain.SessionCreated, session.Status)

	require.NoError(t, svc.Approve(ctx, session.ID, testDID))

	issued, err := svc.IssueCode(ctx, session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Code)
	require.Equal(t, push.RedirectURI, issued.RedirectURI)
	require.Equal(t, push.State, issued.State)

	stored, err := st.Sessions().GetSessionByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionCodeIssued, stored.Status)
	require.Equal(t, cryptox.FingerprintToken(issued.Code), stored.CodeHash)
	require.Equal(t, testDID, stored.SubjectDID)
}

func TestResolveRejections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	par := &ParService{Store: st, Registry: PermissiveRegistry{}}
	svc := &AuthorizeService{Store: st}

	push := validPush()
	pushed, err := par.Push(ctx, push)
	require.NoError(t, err)

	t.Run("unknown request_uri", func(t *testing.T) {
		_, err := svc.Resolve(ctx, push.ClientID, RequestURIPrefix+"nope")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("request_uri without urn prefix", func(t *testing.T) {
		_, err := svc.Resolve(ctx, push.ClientID, "https://example.com/req")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("different client", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "https://other.example/metadata.json", pushed.RequestURI)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("omitted client_id resolves", func(t *testing.T) {
		session, err := svc.Resolve(ctx, "", pushed.RequestURI)
		require.NoError(t, err)
		require.Equal(t, push.ClientID, session.ClientID)
	})
}

func TestApproveIsSingleShot(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	par := &ParService{Store: st, Registry: PermissiveRegistry{}}
	svc := &AuthorizeService{Store: st}

	pushed, err := par.Push(ctx, validPush())
	require.NoError(t, err)
	session, err := st.Sessions().GetSessionByRequestURI(ctx, pushed.RequestURI)
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, session.ID, testDID))
	require.ErrorIs(t, svc.Approve(ctx, session.ID, testDID), ErrInvalidGrant)
}

func TestIssueCodeRequiresConsent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	par := &ParService{Store: st, Registry: PermissiveRegistry{}}
	svc := &AuthorizeService{Store: st}

	pushed, err := par.Push(ctx, validPush())
	require.NoError(t, err)
	session, err := st.Sessions().GetSessionByRequestURI(ctx, pushed.RequestURI)
	require.NoError(t, err)

	// Session is still in the created state, no subject has consented.
	_, err = svc.IssueCode(ctx, session.ID)
	require.ErrorIs(t, err, ErrInvalidGrant)

	require.NoError(t, svc.Approve(ctx, session.ID, testDID))

	_, err = svc.IssueCode(ctx, session.ID)
	require.NoError(t, err)

	// A code can only be bound once per session.
	_, err = svc.IssueCode(ctx, session.ID)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExpiredSessionIsUnusable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	par := &ParService{Store: st, Registry: PermissiveRegistry{}, RequestTTL: -time.Second}
	svc := &AuthorizeService{Store: st}

	push := validPush()
	pushed, err := par.Push(ctx, push)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, push.ClientID, pushed.RequestURI)
	require.ErrorIs(t, err, ErrExpiredRequestURI)
}
