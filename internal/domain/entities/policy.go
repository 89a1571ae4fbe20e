package entities

// Policy controls how findings turn into decisions
type Policy struct {
	DenySeverities []Severity
	AskSeverities  []Severity

	// Unchecked applies to packages whose ecosystem has no vulnerability database
	Unchecked Decision
	// DepthExceeded applies when part of a command was too deeply nested to inspect
	DepthExceeded Decision

	// AllowPackages and DenyPackages are glob patterns matched against
	// "ecosystem:name" and bare "name"
	AllowPackages []string
	DenyPackages  []string

	Typosquat TyposquatPolicy
}

// TyposquatPolicy flags names suspiciously close to popular packages
type TyposquatPolicy struct {
	Enabled     bool
	MaxDistance int
	Popular     map[Ecosystem][]string
}

// DefaultPolicy returns the policy used when no policy file exists
func DefaultPolicy() *Policy {
	return &Policy{
		DenySeverities: []Severity{SeverityCritical, SeverityHigh},
		AskSeverities:  []Severity{SeverityMedium, SeverityUnknown},
		Unchecked:      DecisionAllow,
		DepthExceeded:  DecisionAsk,
		Typosquat: TyposquatPolicy{
			Enabled:     true,
			MaxDistance: 1,
			Popular:     DefaultPopularPackages(),
		},
	}
}

// DefaultPopularPackages lists frequently typosquatted names per ecosystem
func DefaultPopularPackages() map[Ecosystem][]string {
	return map[Ecosystem][]string{
		EcosystemNPM: {
			"react", "react-dom", "lodash", "express", "axios", "chalk", "commander",
			"typescript", "webpack", "eslint", "prettier", "jquery", "moment", "vue",
			"next", "debug", "request", "dotenv", "uuid", "yargs", "colors", "mongoose",
			"electron", "nodemon", "jest", "mocha", "babel-cli", "cross-env", "rimraf",
		},
		EcosystemPyPI: {
			"requests", "numpy", "pandas", "django", "flask", "urllib3", "setuptools",
			"boto3", "botocore", "pyyaml", "cryptography", "matplotlib", "scipy",
			"pillow", "beautifulsoup4", "selenium", "tensorflow", "torch", "pytest",
			"colorama", "python-dateutil", "jinja2", "openai", "fastapi", "pydantic",
		},
	}
}
