package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// maxChecksumInput bounds how much of a policy file is hashed
const maxChecksumInput = 1 << 20

// checksumVerifier pins a local file to a SHA256 digest
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum compares the file's SHA256 with expectedSum (hex, any case)
func (v *checksumVerifier) VerifyChecksum(filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	expected := strings.ToLower(strings.TrimSpace(expectedSum))
	if actualSum != expected {
		return fmt.Errorf("%w: checksum mismatch: expected %s, got %s", entities.ErrPolicyInvalid, expected, actualSum)
	}
	return nil
}

// CalculateChecksum returns the hex SHA256 of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: Policy path comes from trusted settings
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, io.LimitReader(f, maxChecksumInput+1))
	if err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	if n > maxChecksumInput {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", entities.ErrPolicyInvalid, filePath, maxChecksumInput)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
