package jobs

// validTransitions encodes the monotone job lifecycle. Terminal states have
// no outgoing edges, so a completed or failed job can never flip back.
var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

func isValidTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
