package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/ochairo/patchpilot/internal/domain-adapters/gateways"
	"github.com/ochairo/patchpilot/internal/domain/services"
	"github.com/ochairo/patchpilot/internal/external-adapters/env"
	"github.com/ochairo/patchpilot/internal/external-adapters/yaml"
)

// runVerifyPolicy checks a policy's signature and contents without running the hook
func runVerifyPolicy(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("verify-policy", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		policyPath = fs.StringP("policy", "p", "", "Policy file (default $PATCHPILOT_POLICY)")
		keyPath    = fs.StringP("key", "k", "", "Armored public key (default $PATCHPILOT_POLICY_KEY)")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: patchpilot verify-policy [options]

Verify the policy file's detached signature (<policy>.asc or .sig) when a
key is configured, then validate its contents.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	settings, err := env.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *policyPath == "" {
		*policyPath = settings.Policy
	}
	if *keyPath == "" {
		*keyPath = settings.PolicyKey
	}
	if *policyPath == "" {
		fmt.Fprintf(stderr, "Error: no policy file configured (use --policy or PATCHPILOT_POLICY)\n")
		return 1
	}

	if err := verifyPolicy(ctx, stdout, *policyPath, *keyPath); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", styleDeny.Render("✗"), err)
		return 1
	}
	return 0
}

func verifyPolicy(ctx context.Context, stdout io.Writer, policyPath, keyPath string) error {
	var repo *yaml.PolicyRepository
	if keyPath != "" {
		verifier, err := gateways.NewGPGVerifier(keyPath)
		if err != nil {
			return err
		}
		repo = yaml.NewPolicyRepository(policyPath, verifier, nil)

		signer, err := repo.Verify()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s Signature valid, signed by %s\n", styleAllow.Render("✓"), signer)
	} else {
		repo = yaml.NewPolicyRepository(policyPath, nil, nil)
		fmt.Fprintf(stdout, "%s No signing key configured, signature not checked\n", styleAsk.Render("!"))
	}

	policy, err := repo.LoadPolicy(ctx)
	if err != nil {
		return err
	}
	if _, err := services.NewPolicyService(policy); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s Policy valid: deny %v, ask %v, unchecked %s, depth exceeded %s, %d allow and %d deny patterns\n",
		styleAllow.Render("✓"),
		policy.DenySeverities, policy.AskSeverities, policy.Unchecked, policy.DepthExceeded,
		len(policy.AllowPackages), len(policy.DenyPackages))
	return nil
}
