package chat

// Status is the lifecycle state of a generation session.
type Status int

const (
	// StatusSubmitting: the generate call is in flight.
	StatusSubmitting Status = iota
	// StatusAwaitingReply: the server acknowledged the request and the
	// session is polling for the reply.
	StatusAwaitingReply
	// StatusCompleted: the reply materialized.
	StatusCompleted
	// StatusTimedOut: the poll ceiling was reached. The server may still be
	// generating; callers should present "check back later", not a failure.
	StatusTimedOut
	// StatusFailed: the generate call itself failed.
	StatusFailed
	// StatusCancelled: the session was cancelled locally.
	StatusCancelled
)

// Terminal reports whether the session can no longer make progress.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusTimedOut, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusAwaitingReply:
		return "awaiting_reply"
	case StatusCompleted:
		return "completed"
	case StatusTimedOut:
		return "timed_out"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}
