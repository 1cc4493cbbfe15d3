package model

import "time"

// Target is one monitored product page.
type Target struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	SettleMs int    `yaml:"settleMs" json:"settleMs,omitempty"`
}

// Settle is how long to let client-side rendering finish after the page body
// appears, before reading the DOM.
func (t Target) Settle() time.Duration {
	if t.SettleMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.SettleMs) * time.Millisecond
}

// MarkerRule locates a storefront sold-out indicator: any element matched by
// Selector whose visible text contains Marker means the product is gone.
type MarkerRule struct {
	Selector string `yaml:"selector" json:"selector"`
	Marker   string `yaml:"marker" json:"marker"`
}

// DefaultMarkerRules are the selectors known to match the storefront's
// sold-out indicator. Updating them after a page redesign is a config change,
// not a code change.
func DefaultMarkerRules() []MarkerRule {
	return []MarkerRule{
		{Selector: ".sc-190ba8g-4", Marker: "Sold Out"},
		{Selector: `button[label="Sold Out"]`, Marker: "Sold Out"},
		{Selector: "div.sc-1x3sjmh-0", Marker: "Sold Out"},
	}
}
