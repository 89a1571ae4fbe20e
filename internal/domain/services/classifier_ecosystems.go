package services

import (
	"regexp"
	"strings"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// argStyle says how a matched command's operands name packages
type argStyle int

const (
	// installArgs: every operand is a package spec
	installArgs argStyle = iota
	// execArgs: package flags name packages, then the first operand is
	// the executed target and ends the scan
	execArgs
)

// ecosystemRule matches one subcommand of a package manager
type ecosystemRule struct {
	subcommand []string
	ecosystem  entities.Ecosystem
	style      argStyle
	// valueFlags take a value that is not a package (files, URLs, dirs)
	valueFlags map[string]bool
	// packageFlags take a package as their value (npx -p)
	packageFlags map[string]bool
	// callFlags take a command line that is run in a shell (npx -c)
	callFlags map[string]bool
}

// programRules groups the rules of one package manager binary
type programRules struct {
	// globalValueFlags may precede the subcommand and take a value
	globalValueFlags map[string]bool
	rules            []ecosystemRule
}

var (
	npmInstallValueFlags = flagSet(
		"--registry", "--tag", "--prefix", "--cache", "--userconfig", "-w", "--workspace",
		"--omit", "--include", "--install-strategy", "-C", "--before",
	)
	npxValueFlags = flagSet(
		"--cache", "--registry", "--userconfig", "-w", "--workspace", "--prefix",
	)
	npxPackageFlags = flagSet("-p", "--package")
	npxCallFlags    = flagSet("-c", "--call")

	pipInstallValueFlags = flagSet(
		"-r", "--requirement", "-c", "--constraint", "-e", "--editable", "-i", "--index-url",
		"--extra-index-url", "-t", "--target", "--prefix", "--root", "-f", "--find-links",
		"--platform", "--python-version", "--implementation", "--abi", "--src",
		"--upgrade-strategy", "--progress-bar", "--log", "--proxy", "--cache-dir",
		"--trusted-host", "--python", "--report", "--group", "--no-binary", "--only-binary",
	)
	uvxPackageFlags    = flagSet("--from", "--with", "-w")
	pipxRunValueFlags  = flagSet("--python", "--index-url", "--pip-args")
	pipxRunPackageFlag = flagSet("--spec")
)

func installRules(ecosystem entities.Ecosystem, valueFlags map[string]bool, subcommands ...string) []ecosystemRule {
	rules := make([]ecosystemRule, 0, len(subcommands))
	for _, sub := range subcommands {
		rules = append(rules, ecosystemRule{
			subcommand: strings.Fields(sub),
			ecosystem:  ecosystem,
			style:      installArgs,
			valueFlags: valueFlags,
		})
	}
	return rules
}

func execRule(ecosystem entities.Ecosystem, valueFlags, packageFlags map[string]bool, subcommand ...string) ecosystemRule {
	return ecosystemRule{
		subcommand:   subcommand,
		ecosystem:    ecosystem,
		style:        execArgs,
		valueFlags:   valueFlags,
		packageFlags: packageFlags,
	}
}

// npmExecRule is execRule for the npm family, whose exec also runs --call strings
func npmExecRule(subcommand ...string) ecosystemRule {
	rule := execRule(entities.EcosystemNPM, npxValueFlags, npxPackageFlags, subcommand...)
	rule.callFlags = npxCallFlags
	return rule
}

func concatRules(groups ...[]ecosystemRule) []ecosystemRule {
	var all []ecosystemRule
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// npmInstallAliases are every spelling npm accepts for install, plus update
var npmInstallAliases = []string{
	"install", "i", "add", "in", "ins", "inst", "insta", "instal",
	"isnt", "isnta", "isntal", "isntall", "update", "up", "upgrade",
}

var ecosystemRules = map[string]programRules{
	"npm": {
		globalValueFlags: flagSet("--prefix", "--registry", "--cache", "--userconfig", "-C", "-w", "--workspace"),
		rules: concatRules(
			installRules(entities.EcosystemNPM, npmInstallValueFlags, npmInstallAliases...),
			installRules(entities.EcosystemNPM, npmInstallValueFlags, "link", "ln"),
			[]ecosystemRule{
				npmExecRule("exec"),
				npmExecRule("x"),
			},
		),
	},
	"pnpm": {
		globalValueFlags: flagSet("-C", "--dir", "--filter", "-F"),
		rules: concatRules(
			installRules(entities.EcosystemNPM, npmInstallValueFlags, "install", "i", "add", "update", "up", "link", "ln"),
			[]ecosystemRule{npmExecRule("dlx")},
		),
	},
	"yarn": {
		globalValueFlags: flagSet("--cwd"),
		rules: concatRules(
			installRules(entities.EcosystemNPM, npmInstallValueFlags, "add", "install", "i", "upgrade", "up", "link", "global add"),
			[]ecosystemRule{npmExecRule("dlx")},
		),
	},
	"bun": {
		globalValueFlags: flagSet("--cwd"),
		rules: concatRules(
			installRules(entities.EcosystemNPM, npmInstallValueFlags, "add", "a", "install", "i", "update", "link"),
			[]ecosystemRule{npmExecRule("x")},
		),
	},
	"npx":  {rules: []ecosystemRule{npmExecRule()}},
	"bunx": {rules: []ecosystemRule{npmExecRule()}},

	"pip": {
		globalValueFlags: flagSet("--python", "--proxy", "--log", "--cache-dir", "--retries", "--timeout"),
		rules:            installRules(entities.EcosystemPyPI, pipInstallValueFlags, "install"),
	},
	"pipx": {
		rules: concatRules(
			installRules(entities.EcosystemPyPI, pipInstallValueFlags, "install"),
			[]ecosystemRule{execRule(entities.EcosystemPyPI, pipxRunValueFlags, pipxRunPackageFlag, "run")},
		),
	},
	"uv": {
		globalValueFlags: flagSet("--directory", "--project", "--cache-dir", "--python", "-p"),
		rules:            installRules(entities.EcosystemPyPI, pipInstallValueFlags, "pip install", "add", "tool install"),
	},
	"uvx":    {rules: []ecosystemRule{execRule(entities.EcosystemPyPI, pipInstallValueFlags, uvxPackageFlags)}},
	"poetry": {rules: installRules(entities.EcosystemPyPI, pipInstallValueFlags, "add")},
	"python": {
		globalValueFlags: flagSet("-W", "-X", "-Q"),
		rules:            installRules(entities.EcosystemPyPI, pipInstallValueFlags, "-m pip install"),
	},

	"brew": {rules: installRules(entities.EcosystemHomebrew, nil, "install", "reinstall", "upgrade")},
}

// versionedBinary folds python3, python3.12, pip3, pip3.11 onto their family
var versionedBinary = regexp.MustCompile(`^(python|pip)[0-9]+(\.[0-9]+)*$`)

func canonicalProgram(token string) string {
	name := commandName(token)
	if m := versionedBinary.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// detectPackages recognizes a package manager invocation and extracts its packages
func detectPackages(argv []string) []entities.ParsedPackage {
	if len(argv) == 0 {
		return nil
	}
	program, ok := ecosystemRules[canonicalProgram(argv[0])]
	if !ok {
		return nil
	}

	for _, rule := range program.rules {
		operands, ok := matchSubcommand(argv[1:], rule.subcommand, program.globalValueFlags)
		if !ok {
			continue
		}
		var specs []string
		if rule.style == execArgs {
			specs = execOperands(operands, rule)
		} else {
			specs = installOperands(operands, rule.valueFlags)
		}
		return extractPackages(specs, rule.ecosystem)
	}
	return nil
}

// matchSubcommand finds want in args, allowing options before each word
func matchSubcommand(args, want []string, valueFlags map[string]bool) ([]string, bool) {
	i := 0
	for _, word := range want {
		for i < len(args) && args[i] != word && strings.HasPrefix(args[i], "-") {
			if valueFlags[args[i]] {
				i++
			}
			i++
		}
		if i >= len(args) || args[i] != word {
			return nil, false
		}
		i++
	}
	return args[i:], true
}

// installOperands drops option values that are not packages
func installOperands(args []string, valueFlags map[string]bool) []string {
	specs := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			return append(specs, args[i+1:]...)
		}
		if valueFlags[tok] {
			i++
			continue
		}
		specs = append(specs, tok)
	}
	return specs
}

// execOperands collects package-flag values and the executed target
func execOperands(args []string, rule ecosystemRule) []string {
	var specs []string
	for i := 0; i < len(args); i++ {
		tok := args[i]
		switch {
		case tok == "--":
			if i+1 < len(args) {
				specs = append(specs, args[i+1])
			}
			return specs
		case strings.HasPrefix(tok, "--") && strings.Contains(tok, "="):
			if key, value, _ := strings.Cut(tok, "="); rule.packageFlags[key] {
				specs = append(specs, value)
			}
		case rule.packageFlags[tok]:
			if i+1 < len(args) {
				specs = append(specs, args[i+1])
				i++
			}
		case rule.valueFlags[tok], rule.callFlags[tok]:
			i++
		case strings.HasPrefix(tok, "-"):
			// boolean option
		default:
			return append(specs, tok)
		}
	}
	return specs
}

// callScripts returns the command lines an exec-style invocation passes to
// its call flags, e.g. npx -c "npm install x"
func callScripts(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	program, ok := ecosystemRules[canonicalProgram(argv[0])]
	if !ok {
		return nil
	}

	for _, rule := range program.rules {
		if rule.callFlags == nil {
			continue
		}
		args, ok := matchSubcommand(argv[1:], rule.subcommand, program.globalValueFlags)
		if !ok {
			continue
		}

		var scripts []string
		for i := 0; i < len(args); i++ {
			tok := args[i]
			switch {
			case tok == "--":
				return scripts
			case strings.HasPrefix(tok, "--") && strings.Contains(tok, "="):
				if key, value, _ := strings.Cut(tok, "="); rule.callFlags[key] {
					scripts = append(scripts, value)
				}
			case rule.callFlags[tok]:
				if i+1 < len(args) {
					scripts = append(scripts, args[i+1])
					i++
				}
			case rule.packageFlags[tok], rule.valueFlags[tok]:
				i++
			case !strings.HasPrefix(tok, "-"):
				return scripts
			}
		}
		return scripts
	}
	return nil
}
