// Package shell splits shell command lines into simple commands.
//
// Parsing uses mvdan.cc/sh for the Bash grammar. Input it rejects is split on
// unquoted control operators and each fragment is retried on its own, first
// with mvdan.cc/sh and then with github.com/google/shlex. Words are rendered
// literally: quotes are removed and escapes resolved, but parameters and
// command substitutions are printed back as source text and never expanded.
package shell

import (
	"strings"

	"github.com/google/shlex"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// Tokenizer implements gateways.CommandTokenizer.
// It holds no state and is safe for concurrent use.
type Tokenizer struct{}

// NewTokenizer creates a new shell tokenizer
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Segments returns every simple command in source order
func (t *Tokenizer) Segments(command string) []entities.CommandSegment {
	command = Normalize(command)
	if strings.TrimSpace(command) == "" {
		return nil
	}

	if segments, err := parseSegments(command); err == nil {
		return segments
	}

	// Degrade per fragment so one malformed piece does not hide the rest
	var segments []entities.CommandSegment
	for _, fragment := range SplitOperators(command) {
		segments = append(segments, parseFragment(fragment)...)
	}
	return segments
}

func parseFragment(fragment string) []entities.CommandSegment {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	if segments, err := parseSegments(fragment); err == nil {
		return segments
	}
	tokens, err := shlex.Split(fragment)
	if err != nil || len(tokens) == 0 {
		return nil
	}
	return []entities.CommandSegment{tokens}
}

// parseSegments parses src as Bash and collects one segment per call expression.
// A new parser is created per call; syntax.Parser is not safe for concurrent use.
func parseSegments(src string) ([]entities.CommandSegment, error) {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		return nil, err
	}

	printer := syntax.NewPrinter()
	var segments []entities.CommandSegment
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		segment := make(entities.CommandSegment, 0, len(call.Assigns)+len(call.Args))
		for _, assign := range call.Assigns {
			segment = append(segment, assignString(printer, assign))
		}
		for _, word := range call.Args {
			segment = append(segment, wordString(printer, word))
		}
		segments = append(segments, segment)
		return true
	})
	return segments, nil
}

func assignString(printer *syntax.Printer, assign *syntax.Assign) string {
	var sb strings.Builder
	if assign.Name != nil {
		sb.WriteString(assign.Name.Value)
	}
	if assign.Append {
		sb.WriteString("+=")
	} else {
		sb.WriteString("=")
	}
	switch {
	case assign.Value != nil:
		sb.WriteString(wordString(printer, assign.Value))
	case assign.Array != nil:
		_ = printer.Print(&sb, assign.Array)
	}
	return sb.String()
}

// wordString renders a word the way the shell would pass it to a program,
// leaving expansions unexpanded.
func wordString(printer *syntax.Printer, word *syntax.Word) string {
	if word == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range word.Parts {
		writePart(printer, &sb, part, false)
	}
	return sb.String()
}

func writePart(printer *syntax.Printer, sb *strings.Builder, part syntax.WordPart, quoted bool) {
	switch p := part.(type) {
	case *syntax.Lit:
		if quoted {
			sb.WriteString(unescapeDouble(p.Value))
		} else {
			sb.WriteString(unescapeBare(p.Value))
		}
	case *syntax.SglQuoted:
		if p.Dollar {
			sb.WriteString(unescapeANSIC(p.Value))
		} else {
			sb.WriteString(p.Value)
		}
	case *syntax.DblQuoted:
		for _, inner := range p.Parts {
			writePart(printer, sb, inner, true)
		}
	default:
		_ = printer.Print(sb, part)
	}
}
