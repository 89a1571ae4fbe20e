package entities

import "errors"

// Sentinel errors shared across layers
var (
	ErrLookupFailed         = errors.New("vulnerability lookup failed")
	ErrPolicyInvalid        = errors.New("invalid policy")
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrEcosystemUnsupported = errors.New("ecosystem not supported")
)

// LookupError records which package a failed lookup was for
type LookupError struct {
	Package ParsedPackage
	Err     error
}

func (e *LookupError) Error() string {
	return "lookup " + e.Package.String() + ": " + e.Err.Error()
}

// Unwrap exposes both the sentinel and the cause to errors.Is
func (e *LookupError) Unwrap() []error {
	return []error{ErrLookupFailed, e.Err}
}
