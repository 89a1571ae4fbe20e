package gateways

import (
	"fmt"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external GPG adapter to implement SignatureVerifier
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a verifier trusting the keys in keyPath
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(keyPath string) (*gpgVerifier, error) {
	verifier := gpg.NewVerifier()
	if err := verifier.ImportKeyFromFile(keyPath); err != nil {
		return nil, fmt.Errorf("failed to import GPG key from file: %w", err)
	}
	return &gpgVerifier{verifier: verifier}, nil
}

// VerifyFile verifies a detached signature from a local file
func (g *gpgVerifier) VerifyFile(dataPath, sigPath string) (string, error) {
	signer, err := g.verifier.VerifySignatureFromFile(dataPath, sigPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entities.ErrSignatureInvalid, err)
	}
	return signer, nil
}

// KeyringSize returns the number of keys loaded
func (g *gpgVerifier) KeyringSize() int {
	return g.verifier.KeyringSize()
}
