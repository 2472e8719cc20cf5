// Package kanban defines the lifecycle state machine of a discovered job.
//
// Valid status graph:
//
//	recommended ──► applied ──► interviewing ──► offer
//	     │             │              │
//	     └─────────────┴──────────────┴──► rejected
//
// offer and rejected are terminal states.
package kanban

import (
	"fmt"

	"jobmate/matching-service/internal/model"
)

// Status aliases the persisted job status.
type Status = model.JobStatus

const (
	StatusRecommended  = model.JobRecommended
	StatusApplied      = model.JobApplied
	StatusInterviewing = model.JobInterviewing
	StatusOffer        = model.JobOffer
	StatusRejected     = model.JobRejected
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusRecommended:  {StatusApplied, StatusRejected},
	StatusApplied:      {StatusInterviewing, StatusRejected},
	StatusInterviewing: {StatusOffer, StatusRejected},
}

// ParseStatus converts a raw string to a Status. Values are case-sensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusRecommended, StatusApplied, StatusInterviewing, StatusOffer, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed reports whether moving from → to is permitted.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
