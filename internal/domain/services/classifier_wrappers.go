package services

import (
	"regexp"
	"strings"
)

// wrapperRule describes a command that runs another command given as its operands
type wrapperRule struct {
	// valueFlags consume the following token
	valueFlags map[string]bool
	// splitFlags take a string that is split into the wrapped command (env -S)
	splitFlags map[string]bool
	// duration drops one leading duration operand (timeout 10s, watch 5)
	duration bool
	// assignments drops NAME=value operands (env, sudo)
	assignments bool
	// reparse joins the operands and parses them as a new command line (eval)
	reparse bool
	// shellOperands runs the operands left after options through sh -c (watch)
	shellOperands bool
}

func flagSet(flags ...string) map[string]bool {
	set := make(map[string]bool, len(flags))
	for _, f := range flags {
		set[f] = true
	}
	return set
}

var wrapperRules = map[string]wrapperRule{
	"sudo": {
		valueFlags:  flagSet("-u", "--user", "-g", "--group", "-h", "--host", "-C", "--close-from", "-p", "--prompt", "-U", "--other-user", "-r", "--role", "-t", "--type", "-D", "--chdir", "-R", "--chroot", "-T", "--command-timeout"),
		assignments: true,
	},
	"doas":    {valueFlags: flagSet("-u", "-C")},
	"exec":    {valueFlags: flagSet("-a")},
	"eval":    {reparse: true},
	"command": {},
	"builtin": {},
	"nice":    {valueFlags: flagSet("-n", "--adjustment")},
	"ionice":  {valueFlags: flagSet("-c", "--class", "-n", "--classdata")},
	"nohup":   {},
	"timeout": {valueFlags: flagSet("-s", "--signal", "-k", "--kill-after"), duration: true},
	"time":    {valueFlags: flagSet("-f", "--format", "-o", "--output")},
	"watch": {
		valueFlags:    flagSet("-n", "--interval", "-q", "--equexit"),
		duration:      true,
		shellOperands: true,
	},
	"caffeinate": {
		valueFlags: flagSet("-t", "-w"),
	},
	"setsid": {},
	"at":     {valueFlags: flagSet("-f", "-q", "-t")},
	"batch":  {valueFlags: flagSet("-f", "-q")},
	"strace": {
		valueFlags: flagSet("-o", "-e", "-p", "-s", "-u", "-E", "-P", "-S", "-X", "-I", "-b", "-a", "-O"),
	},
	"ltrace": {
		valueFlags: flagSet("-o", "-e", "-p", "-s", "-u", "-n", "-a", "-A", "-D", "-F", "-l", "-x"),
	},
	"firejail":     {},
	"sandbox-exec": {valueFlags: flagSet("-f", "-p", "-n", "-D")},
	"proxychains":  {valueFlags: flagSet("-f")},
	"proxychains4": {valueFlags: flagSet("-f")},
	"tsocks":       {},
	"xargs": {
		valueFlags: flagSet("-I", "-L", "-n", "-P", "-s", "-d", "-E", "-a", "--arg-file", "--delimiter", "--max-args", "--max-procs", "--max-lines", "--max-chars", "--replace"),
	},
	"parallel": {
		valueFlags: flagSet("-j", "--jobs", "-S", "--sshlogin", "-a", "--arg-file", "--joblog", "--delay", "--timeout", "-I", "--tmpdir"),
	},
	"env": {
		valueFlags:  flagSet("-u", "--unset", "-C", "--chdir"),
		splitFlags:  flagSet("-S", "--split-string"),
		assignments: true,
	},
}

var durationPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[smhd]?$`)

// unwrap peels wrapper commands off argv. When a wrapper hands its operands
// to a new parse (eval, env -S) the text is returned with nested set.
func unwrap(argv []string) (rest []string, script string, nested bool) {
	for len(argv) > 0 {
		rule, ok := wrapperRules[commandName(argv[0])]
		if !ok {
			return argv, "", false
		}
		argv = argv[1:]

		if rule.reparse {
			if len(argv) > 0 && argv[0] == "--" {
				argv = argv[1:]
			}
			if len(argv) == 0 {
				return nil, "", false
			}
			return nil, strings.Join(argv, " "), true
		}

		var split string
		argv, split, nested = rule.consumeOptions(argv)
		if nested {
			return nil, strings.Join(append([]string{split}, argv...), " "), true
		}
		if rule.shellOperands && len(argv) > 0 {
			return nil, strings.Join(argv, " "), true
		}
	}
	return argv, "", false
}

// consumeOptions drops the wrapper's own options and operands
func (r wrapperRule) consumeOptions(argv []string) (rest []string, split string, nested bool) {
	for len(argv) > 0 {
		tok := argv[0]

		if tok == "--" {
			argv = argv[1:]
			break
		}
		if r.assignments && isAssignment(tok) {
			argv = argv[1:]
			continue
		}
		if tok == "-" {
			// env - is env -i
			argv = argv[1:]
			continue
		}
		if !strings.HasPrefix(tok, "-") {
			break
		}

		if key, value, ok := strings.Cut(tok, "="); ok && strings.HasPrefix(tok, "--") {
			if r.splitFlags[key] {
				return argv[1:], value, true
			}
			argv = argv[1:]
			continue
		}

		switch {
		case r.splitFlags[tok] && len(argv) > 1:
			return argv[2:], argv[1], true
		case r.valueFlags[tok] && len(argv) > 1:
			argv = argv[2:]
		default:
			argv = argv[1:]
		}
	}

	if r.assignments {
		argv = stripAssignments(argv)
	}
	if r.duration && len(argv) > 0 && durationPattern.MatchString(argv[0]) {
		argv = argv[1:]
	}
	return argv, "", false
}
