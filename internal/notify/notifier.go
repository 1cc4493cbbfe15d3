package notify

import "context"

// Priority maps onto Pushover's numeric priority range. Negative values bias
// toward silent delivery, positive toward intrusive alerts.
type Priority int

const (
	PriorityLowest Priority = -2
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

// Pusher sends one push notification. Delivery is best-effort: callers log
// the returned error, they never abort the run on it.
type Pusher interface {
	Push(ctx context.Context, message string, pri Priority, title string) error
}
