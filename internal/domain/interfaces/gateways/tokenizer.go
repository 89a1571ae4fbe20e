package gateways

import "github.com/ochairo/patchpilot/internal/domain/entities"

// CommandTokenizer splits a command line into simple commands.
// Implementations must be safe for concurrent use and never fail:
// unparseable input yields fewer segments, not an error.
type CommandTokenizer interface {
	Segments(command string) []entities.CommandSegment
}
