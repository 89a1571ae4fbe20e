package entities

// ClassificationKind tags the outcome of classifying a command line
type ClassificationKind int

const (
	// NotRecognized means the command installs or executes no package
	NotRecognized ClassificationKind = iota
	// Packages means at least one package installation was found
	Packages
)

// String returns the kind's lowercase name
func (k ClassificationKind) String() string {
	if k == Packages {
		return "packages"
	}
	return "not_recognized"
}

// Classification is the result of classifying one command line
type Classification struct {
	Kind     ClassificationKind
	Packages []ParsedPackage

	// DepthExceeded is set when nested shells or eval went deeper than the
	// resolver follows and part of the command was left opaque.
	DepthExceeded bool
}

// NewClassification builds a classification from extracted packages.
// An empty list yields NotRecognized.
func NewClassification(pkgs []ParsedPackage, depthExceeded bool) Classification {
	if len(pkgs) == 0 {
		return Classification{Kind: NotRecognized, DepthExceeded: depthExceeded}
	}
	return Classification{Kind: Packages, Packages: pkgs, DepthExceeded: depthExceeded}
}

// Recognized reports whether any package installation was detected
func (c Classification) Recognized() bool {
	return c.Kind == Packages && len(c.Packages) > 0
}
