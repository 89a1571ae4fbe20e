package services

import "github.com/ochairo/patchpilot/internal/domain/entities"

// PolicyService turns lookup results into a permission decision
type PolicyService interface {
	// IsAllowed reports whether a package is trusted and skips lookup
	IsAllowed(pkg entities.ParsedPackage) bool

	// IsDenied reports whether a package is blocked regardless of findings
	IsDenied(pkg entities.ParsedPackage) bool

	// DecideFindings maps vulnerability findings onto a decision
	DecideFindings(findings []entities.Finding) entities.DecisionResult

	// Evaluate combines a classification and its package checks into a decision
	Evaluate(classification entities.Classification, checks []entities.PackageCheck) entities.DecisionResult
}
