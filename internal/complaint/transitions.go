package complaint

import (
	"fmt"

	"incluverse/backend/internal/models"
)

// Policy decides which manual status changes SetStatus accepts.
type Policy string

const (
	// PolicyStrict only allows the edges in allowedTransitions.
	PolicyStrict Policy = "strict"
	// PolicyPermissive allows any status to be set from any status.
	PolicyPermissive Policy = "permissive"
)

// ParsePolicy maps a config value to a Policy; unknown values are strict.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyPermissive {
		return PolicyPermissive
	}
	return PolicyStrict
}

// allowedTransitions lists manual edges under PolicyStrict. offline -> submitted
// is deliberately absent: only a successful sync may take that edge.
var allowedTransitions = map[models.Status][]models.Status{
	models.StatusSubmitted:  {models.StatusInProgress, models.StatusResolved},
	models.StatusInProgress: {models.StatusSubmitted, models.StatusResolved},
	models.StatusResolved:   {models.StatusInProgress},
}

// CheckTransition reports whether the policy lets a responder move a complaint
// from one status to another.
func (p Policy) CheckTransition(from, to models.Status) error {
	if from == to || p == PolicyPermissive {
		return nil
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
