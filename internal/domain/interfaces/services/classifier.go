package services

import "github.com/ochairo/patchpilot/internal/domain/entities"

// ClassifierService recognizes package installations in shell command lines
type ClassifierService interface {
	// Classify is pure and safe for concurrent use
	Classify(command string) entities.Classification
}
