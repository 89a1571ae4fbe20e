// Package gpg provides GPG signature verification capabilities.
package gpg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	armoredSignatureHeader = "-----BEGIN PGP SIGNATURE---"

	// Detached signatures are well under a kilobyte
	maxSignatureBytes = 64 * 1024
)

// Verifier checks detached OpenPGP signatures against an in-memory keyring.
// Keys only come from local files; nothing is fetched over the network.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports armored or binary public keys from a file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for GPG key import
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	return v.ImportKeys(bytes.NewReader(data))
}

// ImportKeys reads an armored keyring, falling back to the binary format
func (v *Verifier) ImportKeys(r io.ReadSeeker) error {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to reset key reader: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignatureFromFile verifies sigPath as a detached signature over
// filePath and returns the signer's identity
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	//nolint:gosec // G304: sigPath is user-provided for GPG verification
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	sigData, err := io.ReadAll(io.LimitReader(sigFile, maxSignatureBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}

	//nolint:gosec // G304: filePath is user-provided for GPG verification
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	return v.Verify(dataFile, sigData)
}

// Verify checks an armored or binary detached signature over data
func (v *Verifier) Verify(data io.Reader, signature []byte) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported")
	}

	var (
		signer    *openpgp.Entity
		verifyErr error
	)
	if bytes.HasPrefix(bytes.TrimSpace(signature), []byte(armoredSignatureHeader)) {
		signer, verifyErr = openpgp.CheckArmoredDetachedSignature(v.keyring, data, bytes.NewReader(signature), nil)
	} else {
		signer, verifyErr = openpgp.CheckDetachedSignature(v.keyring, data, bytes.NewReader(signature), nil)
	}

	if verifyErr != nil {
		return "", fmt.Errorf("signature verification failed: %w", verifyErr)
	}
	return describeSigner(signer), nil
}

// KeyringSize returns the number of keys in the keyring
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}

func describeSigner(signer *openpgp.Entity) string {
	if signer == nil || signer.PrimaryKey == nil {
		return "unknown signer"
	}
	fingerprint := fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint)

	names := make([]string, 0, len(signer.Identities))
	for name := range signer.Identities {
		names = append(names, name)
	}
	if len(names) == 0 {
		return fingerprint
	}
	sort.Strings(names)
	return fmt.Sprintf("%s (%s)", names[0], fingerprint)
}
