package services

import (
	"strings"
	"unicode"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// extractPackages turns package specs into packages, skipping options and
// local paths. Order is preserved.
func extractPackages(specs []string, ecosystem entities.Ecosystem) []entities.ParsedPackage {
	pkgs := make([]entities.ParsedPackage, 0, len(specs))
	for _, spec := range specs {
		if !isPackageSpec(spec) {
			continue
		}
		if pkg, ok := parsePackageSpec(spec, ecosystem); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

// isPackageSpec rejects options, local paths and operator noise such as ":::"
func isPackageSpec(spec string) bool {
	if spec == "" || strings.ContainsAny(spec[:1], "-./~") {
		return false
	}
	return strings.IndexFunc(spec, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// parsePackageSpec splits a spec into name and version using the
// ecosystem's pinning syntax
func parsePackageSpec(spec string, ecosystem entities.Ecosystem) (entities.ParsedPackage, bool) {
	var name, version string
	if ecosystem == entities.EcosystemPyPI {
		name, version = splitPythonSpec(spec)
	} else {
		name, version = splitAtSpec(spec)
	}

	if name == "" {
		return entities.ParsedPackage{}, false
	}
	return entities.ParsedPackage{Name: name, Version: version, Ecosystem: ecosystem}, true
}

// splitAtSpec handles name@version. A leading @ belongs to an npm scope.
func splitAtSpec(spec string) (string, string) {
	if i := strings.LastIndex(spec, "@"); i > 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

// splitPythonSpec handles name[extras]==version and the name@version form
// uvx accepts, and drops range specifiers and direct URL references
func splitPythonSpec(spec string) (string, string) {
	name, version := spec, ""
	if i := strings.Index(spec, "=="); i >= 0 {
		name = spec[:i]
		version = strings.TrimLeft(spec[i+2:], "=")
		if j := strings.IndexAny(version, ";, "); j >= 0 {
			version = version[:j]
		}
	} else if i := strings.Index(spec, "@"); i > 0 && i+1 < len(spec) && unicode.IsDigit(rune(spec[i+1])) {
		name, version = spec[:i], spec[i+1:]
	} else if i := strings.IndexAny(spec, "<>=!~;@ "); i >= 0 {
		name = spec[:i]
	}

	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name), strings.TrimSpace(version)
}
