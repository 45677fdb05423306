package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

// InitSessionKeys loads the session signing key, creating it on first
// start, and returns a signer and a verifier trusting it. The key ID is
// derived from the public key.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, *jwtx.EdDSAVerifier, error) {
	pemKey, err := jwtx.LoadOrCreateEd25519PEM(cfg.SessionKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session key: %w", err)
	}

	priv, err := jwtx.ParseEd25519PEM(pemKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse session key: %w", err)
	}
	pub, _ := priv.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	kid := hex.EncodeToString(sum[:8])

	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, nil, err
	}

	verifier := jwtx.NewVerifierEdDSA(cfg.Issuer)
	verifier.AddKey(kid, signer.PublicKey())

	logger.Info("session signing key loaded", "kid", kid, "path", cfg.SessionKeyFile)
	return signer, verifier, nil
}
