package yaml

import (
	"context"
	"fmt"
	"os"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/gateways"
)

// SignatureSuffixes are tried in order to find a policy's detached signature
var SignatureSuffixes = []string{".asc", ".sig"}

// PolicyRepository implements repositories.PolicyRepository using a YAML file
type PolicyRepository struct {
	path     string
	parser   *PolicyParser
	verifier gateways.SignatureVerifier
	checksum gateways.ChecksumVerifier
	digest   string
	logger   interfaces.Logger
}

// NewPolicyRepository creates a repository for the policy at path. When
// verifier is non-nil the file must carry a valid detached signature.
func NewPolicyRepository(path string, verifier gateways.SignatureVerifier, logger interfaces.Logger) *PolicyRepository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &PolicyRepository{
		path:     path,
		parser:   NewPolicyParser(),
		verifier: verifier,
		logger:   logger,
	}
}

// PinDigest requires the policy file to hash to digest before it is parsed
func (r *PolicyRepository) PinDigest(digest string, checksum gateways.ChecksumVerifier) {
	r.digest = digest
	r.checksum = checksum
}

// LoadPolicy reads, verifies and parses the policy file. A missing file
// yields the default policy unless a signing key is configured.
func (r *PolicyRepository) LoadPolicy(_ context.Context) (*entities.Policy, error) {
	if r.path == "" {
		return r.missing()
	}

	if _, err := os.Stat(r.path); err != nil {
		if os.IsNotExist(err) {
			return r.missing()
		}
		return nil, fmt.Errorf("failed to stat policy %s: %w", r.path, err)
	}

	if r.digest != "" && r.checksum != nil {
		if err := r.checksum.VerifyChecksum(r.path, r.digest); err != nil {
			return nil, fmt.Errorf("policy %s: %w", r.path, err)
		}
		r.logger.Debug("Policy digest verified", interfaces.F("path", r.path))
	}

	if r.verifier != nil {
		signer, err := r.Verify()
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Policy signature verified", interfaces.F("path", r.path), interfaces.F("signer", signer))
	}

	policy, err := r.parser.ParseFile(r.path)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Loaded policy", interfaces.F("path", r.path))
	return policy, nil
}

// Verify checks the policy's detached signature and returns the signer
func (r *PolicyRepository) Verify() (string, error) {
	if r.verifier == nil {
		return "", fmt.Errorf("%w: no signing key configured", entities.ErrSignatureInvalid)
	}

	sigPath, err := r.signaturePath()
	if err != nil {
		return "", err
	}

	signer, err := r.verifier.VerifyFile(r.path, sigPath)
	if err != nil {
		return "", fmt.Errorf("policy %s: %w", r.path, err)
	}
	return signer, nil
}

func (r *PolicyRepository) signaturePath() (string, error) {
	for _, suffix := range SignatureSuffixes {
		candidate := r.path + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no signature found for %s", entities.ErrSignatureInvalid, r.path)
}

func (r *PolicyRepository) missing() (*entities.Policy, error) {
	if r.digest != "" {
		return nil, fmt.Errorf("%w: digest pinned but policy %q is missing", entities.ErrPolicyInvalid, r.path)
	}
	if r.verifier != nil {
		return nil, fmt.Errorf("%w: signing key configured but policy %q is missing", entities.ErrPolicyInvalid, r.path)
	}
	r.logger.Debug("No policy file, using defaults", interfaces.F("path", r.path))
	return entities.DefaultPolicy(), nil
}
