package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/driftwoodlabs/didauth/pkg/cryptox"
	"github.com/driftwoodlabs/didauth/pkg/jwtx"
)

// InitSigningKey loads the ES256 signing key from the configured PEM file,
// generating and persisting a fresh P-256 key on first boot. The returned
// KeySet carries the public half for JWKS publishing and verification.
//
// The key file holds a single unencrypted PKCS8 PEM block; protect it with
// filesystem permissions. Rotations are a restart with a new file, which
// invalidates outstanding access tokens (they live 15 minutes) but not
// refresh tokens, since those are opaque and checked against the database.
func InitSigningKey(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	pemKey, err := os.ReadFile(cfg.SigningKey)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("signing key file absent, generating new ES256 key", "path", cfg.SigningKey)

		pemKey, err = cryptox.GenerateES256Key()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		if err := os.WriteFile(cfg.SigningKey, pemKey, 0o600); err != nil {
			return nil, nil, fmt.Errorf("failed to persist signing key: %w", err)
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	// kid is derived from the key material so it is stable across restarts.
	kid := cryptox.FingerprintToken(string(pemKey))[:16]

	signer, err := jwtx.NewSignerES256(kid, pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("failed to register signing key: %w", err)
	}

	logger.Info("signing key loaded", "kid", kid, "alg", signer.Alg())
	return signer, keys, nil
}
