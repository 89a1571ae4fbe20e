package entities

import "fmt"

// Decision is the permission returned to the host
type Decision string

// Decisions understood by the host
const (
	DecisionAllow Decision = "allow"
	DecisionAsk   Decision = "ask"
	DecisionDeny  Decision = "deny"
)

var decisionRank = map[Decision]int{
	DecisionAllow: 0,
	DecisionAsk:   1,
	DecisionDeny:  2,
}

// ParseDecision validates a decision name
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if _, ok := decisionRank[d]; !ok {
		return "", fmt.Errorf("unknown decision %q", s)
	}
	return d, nil
}

// Stricter returns whichever of d and other restricts more
func (d Decision) Stricter(other Decision) Decision {
	if decisionRank[other] > decisionRank[d] {
		return other
	}
	return d
}

// DecisionResult is a decision with the reason shown to the user
type DecisionResult struct {
	Decision Decision
	Reason   string
}
