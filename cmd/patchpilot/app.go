package main

import (
	"context"
	"fmt"

	"github.com/ochairo/patchpilot/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/patchpilot/internal/domain-orchestrators"
	"github.com/ochairo/patchpilot/internal/domain/interfaces"
	gatewayinterfaces "github.com/ochairo/patchpilot/internal/domain/interfaces/gateways"
	serviceinterfaces "github.com/ochairo/patchpilot/internal/domain/interfaces/services"
	"github.com/ochairo/patchpilot/internal/domain/services"
	"github.com/ochairo/patchpilot/internal/external-adapters/env"
	"github.com/ochairo/patchpilot/internal/external-adapters/logging"
	"github.com/ochairo/patchpilot/internal/external-adapters/shell"
	"github.com/ochairo/patchpilot/internal/external-adapters/yaml"
)

// app holds the wired layers for one invocation
type app struct {
	settings   *env.Settings
	logger     interfaces.Logger
	closeLog   func() error
	classifier serviceinterfaces.ClassifierService
	security   serviceinterfaces.SecurityService
	guard      *orchestrators.GuardOrchestrator
}

// appBuilder wires the application from settings; replaced in tests
type appBuilder func(ctx context.Context, settings *env.Settings) (*app, error)

// loadApp reads settings from the environment and wires every layer
func loadApp(ctx context.Context) (*app, error) {
	settings, err := env.Load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, settings)
}

// newApp wires every layer from settings
func newApp(ctx context.Context, settings *env.Settings) (*app, error) {
	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.Open(settings.LogFile, level)
	if err != nil {
		return nil, err
	}

	// Layer 1: Gateways (Infrastructure)
	classifier := services.NewClassifierService(shell.NewTokenizer())

	var sources []gatewayinterfaces.VulnerabilityGateway
	if !settings.Offline {
		sources = append(sources, gateways.NewOSVGateway(settings.OSVURL, settings.Timeout))
	}
	vulnerabilityGateway := gateways.NewCompositeVulnerabilityGateway(sources...)

	opts := []services.SecurityOption{
		services.WithLogger(logger),
		services.WithConcurrency(settings.Concurrency),
	}
	if settings.ResolveLatest && !settings.Offline {
		resolver := gateways.NewRegistryResolver(settings.NPMRegistryURL, settings.PyPIURL, settings.Timeout)
		opts = append(opts, services.WithVersionResolver(resolver))
	}

	// Layer 2: Services (Business Logic)
	security := services.NewSecurityService(vulnerabilityGateway, opts...)

	repo, err := newPolicyRepository(settings, logger)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	policy, err := repo.LoadPolicy(ctx)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	policyService, err := services.NewPolicyService(policy)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	// Layer 3: Orchestrator (Use Case)
	guard := orchestrators.NewGuardOrchestrator(classifier, security, policyService, logger)

	return &app{
		settings:   settings,
		logger:     logger,
		closeLog:   closeLog,
		classifier: classifier,
		security:   security,
		guard:      guard,
	}, nil
}

func newPolicyRepository(settings *env.Settings, logger interfaces.Logger) (*yaml.PolicyRepository, error) {
	var repo *yaml.PolicyRepository
	if settings.PolicyKey == "" {
		repo = yaml.NewPolicyRepository(settings.Policy, nil, logger)
	} else {
		verifier, err := gateways.NewGPGVerifier(settings.PolicyKey)
		if err != nil {
			return nil, err
		}
		repo = yaml.NewPolicyRepository(settings.Policy, verifier, logger)
	}
	if settings.PolicySHA256 != "" {
		repo.PinDigest(settings.PolicySHA256, gateways.NewChecksumVerifier())
	}
	return repo, nil
}

// Close releases the log file
func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
