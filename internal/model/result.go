package model

import "time"

type State string

const (
	StateInStock State = "in_stock"
	StateSoldOut State = "sold_out"
	StateError   State = "error"
)

// Result is the outcome of one availability check. Message is only set for
// StateError; ScreenshotPath is only set when a possible restock was
// captured for manual verification.
type Result struct {
	Target         string    `json:"target"`
	State          State     `json:"state"`
	Message        string    `json:"message,omitempty"`
	CheckedAt      time.Time `json:"checkedAt"`
	ScreenshotPath string    `json:"screenshotPath,omitempty"`
}

func (r Result) Available() bool {
	return r.State == StateInStock
}
