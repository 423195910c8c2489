package referral

import "fmt"

var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected},
	StatusAccepted:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusCompleted, StatusRejected},
}

// CanTransition checks a status change against the lifecycle graph. Moving
// to the current status is allowed as a no-op unless the status is terminal.
func CanTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, from)
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}
