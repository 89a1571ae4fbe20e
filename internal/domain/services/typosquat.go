package services

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ochairo/patchpilot/internal/domain/entities"
)

// Names shorter than this collide with real packages too often to flag
const minTyposquatLength = 5

type typosquatDetector struct {
	maxDistance int
	popular     map[entities.Ecosystem]map[string]bool
}

func newTyposquatDetector(policy entities.TyposquatPolicy) *typosquatDetector {
	if !policy.Enabled || policy.MaxDistance <= 0 {
		return nil
	}
	popular := make(map[entities.Ecosystem]map[string]bool, len(policy.Popular))
	for ecosystem, names := range policy.Popular {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[strings.ToLower(name)] = true
		}
		popular[ecosystem] = set
	}
	return &typosquatDetector{maxDistance: policy.MaxDistance, popular: popular}
}

// lookalike returns the popular package a name is suspiciously close to
func (d *typosquatDetector) lookalike(pkg entities.ParsedPackage) (string, bool) {
	if d == nil {
		return "", false
	}
	name := strings.ToLower(pkg.Name)
	known := d.popular[pkg.Ecosystem]
	if len(name) < minTyposquatLength || known[name] {
		return "", false
	}

	best, bestDistance := "", d.maxDistance+1
	for candidate := range known {
		if diff := len(candidate) - len(name); diff > d.maxDistance || -diff > d.maxDistance {
			continue
		}
		distance := fuzzy.LevenshteinDistance(name, candidate)
		if distance < bestDistance || (distance == bestDistance && candidate < best) {
			best, bestDistance = candidate, distance
		}
	}
	return best, best != ""
}
