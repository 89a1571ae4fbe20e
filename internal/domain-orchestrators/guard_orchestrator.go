// Package orchestrators coordinates domain services into complete use cases.
package orchestrators

import (
	"context"
	"time"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/services"
)

// NotRecognizedReason is reported for commands that install or run no packages
const NotRecognizedReason = "No package installation detected."

// GuardOrchestrator runs a command line through classification, lookup and policy
type GuardOrchestrator struct {
	classifier services.ClassifierService
	security   services.SecurityService
	policy     services.PolicyService
	logger     interfaces.Logger
}

// NewGuardOrchestrator creates a new guard orchestrator
func NewGuardOrchestrator(
	classifier services.ClassifierService,
	security services.SecurityService,
	policy services.PolicyService,
	logger interfaces.Logger,
) *GuardOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &GuardOrchestrator{
		classifier: classifier,
		security:   security,
		policy:     policy,
		logger:     logger,
	}
}

// GuardResult contains everything learned about one command line
type GuardResult struct {
	Command        string
	Classification entities.Classification
	// Checks covers packages that were looked up; allow- and deny-listed ones are not
	Checks   []entities.PackageCheck
	Skipped  []entities.ParsedPackage
	Decision entities.DecisionResult
	Duration time.Duration
}

// Inspect classifies command, checks the packages policy does not already
// settle, and decides. It never returns an error: lookup failures are part
// of the decision.
func (o *GuardOrchestrator) Inspect(ctx context.Context, command string) *GuardResult {
	startTime := time.Now()

	result := &GuardResult{
		Command:        command,
		Classification: o.classifier.Classify(command),
	}

	// Nothing recognized is only conclusive when the whole command was inspected
	if !result.Classification.Recognized() && !result.Classification.DepthExceeded {
		result.Decision = entities.DecisionResult{Decision: entities.DecisionAllow, Reason: NotRecognizedReason}
		result.Duration = time.Since(startTime)
		return result
	}

	toCheck := make([]entities.ParsedPackage, 0, len(result.Classification.Packages))
	for _, pkg := range result.Classification.Packages {
		if o.policy.IsAllowed(pkg) || o.policy.IsDenied(pkg) {
			result.Skipped = append(result.Skipped, pkg)
			continue
		}
		toCheck = append(toCheck, pkg)
	}

	o.logger.Debug("classified command",
		interfaces.F("packages", len(result.Classification.Packages)),
		interfaces.F("to_check", len(toCheck)),
		interfaces.F("depth_exceeded", result.Classification.DepthExceeded),
	)

	if len(toCheck) > 0 {
		result.Checks = o.security.CheckPackages(ctx, toCheck)
	}

	result.Decision = o.policy.Evaluate(result.Classification, result.Checks)
	result.Duration = time.Since(startTime)

	o.logger.Info("decided",
		interfaces.F("decision", result.Decision.Decision),
		interfaces.F("reason", result.Decision.Reason),
		interfaces.F("duration", result.Duration),
	)
	return result
}
