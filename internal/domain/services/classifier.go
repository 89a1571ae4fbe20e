package services

import (
	"path"
	"regexp"
	"strings"

	"github.com/ochairo/patchpilot/internal/domain/entities"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/gateways"
	"github.com/ochairo/patchpilot/internal/domain/interfaces/services"
)

// maxNestingDepth bounds how many levels of "sh -c" and eval are followed
const maxNestingDepth = 4

// classifierService implements ClassifierService on top of a tokenizer.
// It keeps no mutable state; the rule tables are package-level and read-only.
type classifierService struct {
	tokenizer gateways.CommandTokenizer
	maxDepth  int
}

// NewClassifierService creates a new classifier with dependency injection
func NewClassifierService(tokenizer gateways.CommandTokenizer) services.ClassifierService {
	return &classifierService{
		tokenizer: tokenizer,
		maxDepth:  maxNestingDepth,
	}
}

// Classify returns every package the command line would install or execute,
// in the order they appear.
func (s *classifierService) Classify(command string) entities.Classification {
	var (
		pkgs     []entities.ParsedPackage
		exceeded bool
	)

	for _, segment := range s.tokenizer.Segments(command) {
		for _, argv := range s.resolve(segment, 0, &exceeded) {
			pkgs = append(pkgs, detectPackages(argv)...)
		}
	}

	return entities.NewClassification(pkgs, exceeded)
}

// resolve reduces a segment to the simple commands it really runs:
// assignments and wrappers are peeled off, and the text handed to eval,
// env -S, a shell's -c or npx -c is tokenized and resolved one level deeper.
func (s *classifierService) resolve(segment entities.CommandSegment, depth int, exceeded *bool) [][]string {
	argv := stripAssignments(segment)
	argv, script, nested := unwrap(argv)
	if !nested {
		script, nested = shellScript(argv)
	}
	if nested {
		if depth >= s.maxDepth {
			*exceeded = true
			if len(argv) == 0 {
				return nil
			}
			return [][]string{argv}
		}
		return s.resolveScript(script, depth, exceeded)
	}

	if len(argv) == 0 {
		return nil
	}
	resolved := [][]string{argv}
	for _, call := range callScripts(argv) {
		if depth >= s.maxDepth {
			*exceeded = true
			break
		}
		resolved = append(resolved, s.resolveScript(call, depth, exceeded)...)
	}
	return resolved
}

// resolveScript tokenizes a nested command line and resolves it one level deeper
func (s *classifierService) resolveScript(script string, depth int, exceeded *bool) [][]string {
	var resolved [][]string
	for _, inner := range s.tokenizer.Segments(script) {
		resolved = append(resolved, s.resolve(inner, depth+1, exceeded)...)
	}
	return resolved
}

var assignmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\+?=`)

func isAssignment(token string) bool {
	return assignmentPattern.MatchString(token)
}

// stripAssignments drops leading NAME=value tokens
func stripAssignments(argv []string) []string {
	for len(argv) > 0 && isAssignment(argv[0]) {
		argv = argv[1:]
	}
	return argv
}

// commandName matches programs invoked by path, e.g. /usr/bin/sudo
func commandName(token string) string {
	if !strings.Contains(token, "/") {
		return token
	}
	return path.Base(token)
}

// shellBinaries are interpreters whose -c argument is itself a command line
var shellBinaries = map[string]bool{
	"bash": true, "sh": true, "zsh": true, "ksh": true, "dash": true,
	"csh": true, "tcsh": true, "fish": true, "ash": true, "mksh": true,
}

// shellOptionValues are shell options that consume the following token
var shellOptionValues = map[string]bool{
	"-o": true, "+o": true, "-O": true, "+O": true,
	"--rcfile": true, "--init-file": true,
}

// shellScript returns the command string of "<shell> [options] -c <string>".
// A shell running a script file or reading stdin yields false.
func shellScript(argv []string) (string, bool) {
	if len(argv) < 2 || !shellBinaries[commandName(argv[0])] {
		return "", false
	}

	for i := 1; i < len(argv); i++ {
		tok := argv[i]
		switch {
		case shellOptionValues[tok]:
			i++
		case strings.HasPrefix(tok, "--command="):
			return strings.TrimPrefix(tok, "--command="), true
		case tok == "--command" || isCommandFlag(tok):
			if i+1 < len(argv) {
				return argv[i+1], true
			}
			return "", false
		case tok == "--" || !(strings.HasPrefix(tok, "-") || strings.HasPrefix(tok, "+")):
			return "", false
		}
	}
	return "", false
}

// isCommandFlag matches -c alone or inside a short option cluster like -lc
func isCommandFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' || tok[1] == '-' {
		return false
	}
	return strings.ContainsRune(tok[1:], 'c')
}
