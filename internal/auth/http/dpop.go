package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/driftwoodlabs/didauth/pkg/authsdk"
	"github.com/driftwoodlabs/didauth/pkg/dpopx"
	"github.com/driftwoodlabs/didauth/pkg/httpx"
	"github.com/driftwoodlabs/didauth/pkg/slogx"
)

type proofContextKey struct{}

// ProofFromContext returns the verified DPoP proof result placed on the
// request context by the guard, or nil when the request was not guarded.
func ProofFromContext(ctx context.Context) *dpopx.Result {
	res, _ := ctx.Value(proofContextKey{}).(*dpopx.Result)
	return res
}

// DPoPGuard is the middleware protecting proof-bound endpoints. Every
// response it touches carries a DPoP-Nonce header, success or failure, so
// clients always hold a usable nonce for their next request.
type DPoPGuard struct {
	Verifier *dpopx.Verifier
	Nonces   *dpopx.NonceAuthority
}

// Require returns a middleware that demands a valid DPoP proof. When
// requireNonce is set the proof must also carry a current server nonce;
// otherwise a nonce is only checked if the proof volunteers one.
func (g *DPoPGuard) Require(requireNonce bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			w.Header().Set("DPoP-Nonce", g.Nonces.Current())

			proof := r.Header.Get("DPoP")
			if proof == "" {
				authsdk.ErrInvalidDPoPProof.WriteError(w)
				return
			}

			result, err := g.Verifier.VerifyProof(proof, r.Method, requestURL(r))
			if err != nil {
				var pe *dpopx.ProofError
				if errors.As(err, &pe) && pe.Reason == dpopx.ReasonReplayedJTI {
					log.Warn("DPoP proof jti replay", "endpoint", r.URL.Path)
				} else {
					log.Info("DPoP proof rejected", "endpoint", r.URL.Path, "error", err)
				}
				authsdk.ErrInvalidDPoPProof.WriteError(w)
				return
			}

			if requireNonce {
				if !g.Nonces.Accepts(result.Nonce) {
					authsdk.ErrUseDPoPNonce.WriteError(w)
					return
				}
			} else if result.Nonce != "" && !g.Nonces.Accepts(result.Nonce) {
				authsdk.ErrUseDPoPNonce.WriteError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, proofContextKey{}, result)))
		})
	}
}

// requestURL reconstructs the absolute URL the client signed into its
// proof's htu claim. Query and fragment are excluded per RFC 9449.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + r.URL.Path
}
