package detector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"stockwatch/internal/logbus"
	"stockwatch/internal/model"
)

// Page is the slice of browser behavior the detector depends on. The real
// implementation lives in internal/browser; tests substitute a fake.
type Page interface {
	Navigate(url string) error
	WaitBodyReady(timeout time.Duration) error
	ElementsText(selector string) ([]string, error)
	Screenshot(path string) error
}

// Detector classifies a rendered product page as in-stock, sold-out, or
// error. The rule set is a union: any element matching any rule whose text
// contains the rule's marker means sold out, so rule order does not matter.
type Detector struct {
	rules         []model.MarkerRule
	waitTimeout   time.Duration
	screenshotDir string
	bus           *logbus.Bus
}

func New(rules []model.MarkerRule, waitTimeout time.Duration, screenshotDir string, bus *logbus.Bus) *Detector {
	if len(rules) == 0 {
		rules = model.DefaultMarkerRules()
	}
	if waitTimeout <= 0 {
		waitTimeout = 20 * time.Second
	}
	if screenshotDir == "" {
		screenshotDir = "."
	}
	return &Detector{
		rules:         rules,
		waitTimeout:   waitTimeout,
		screenshotDir: screenshotDir,
		bus:           bus,
	}
}

// Check performs one availability check. It never returns a partial result:
// exactly one of the three states, decided before any notification is sent.
// No retries; a failed target is reported once and the run moves on.
func (d *Detector) Check(ctx context.Context, pg Page, target model.Target) model.Result {
	res := model.Result{Target: target.Name, CheckedAt: time.Now()}
	d.bus.Log("info", "checking availability", map[string]any{
		"target": target.Name,
		"url":    target.URL,
	})

	if err := ctx.Err(); err != nil {
		return d.fail(res, fmt.Sprintf("Error checking %s availability: %v", target.Name, err))
	}
	if err := pg.Navigate(target.URL); err != nil {
		return d.fail(res, fmt.Sprintf("Error checking %s availability: %v", target.Name, err))
	}
	if err := pg.WaitBodyReady(d.waitTimeout); err != nil {
		return d.fail(res, fmt.Sprintf("Timeout while loading the page for %s", target.Name))
	}

	// Give dynamic content time to settle before reading the DOM.
	select {
	case <-time.After(target.Settle()):
	case <-ctx.Done():
		return d.fail(res, fmt.Sprintf("Error checking %s availability: %v", target.Name, ctx.Err()))
	}

	for _, rule := range d.rules {
		texts, err := pg.ElementsText(rule.Selector)
		if err != nil {
			// Selector not present on this page; try the next rule.
			continue
		}
		for _, text := range texts {
			if strings.Contains(text, rule.Marker) {
				d.bus.Log("info", "sold-out marker found", map[string]any{
					"target":   target.Name,
					"selector": rule.Selector,
				})
				res.State = model.StateSoldOut
				return res
			}
		}
	}

	// No marker found: possibly restocked. A changed page layout looks the
	// same, so capture a screenshot for manual verification.
	res.State = model.StateInStock
	path := d.screenshotPath(target.Name)
	if err := pg.Screenshot(path); err != nil {
		d.bus.Log("warn", "screenshot write failed", map[string]any{
			"target": target.Name,
			"path":   path,
			"error":  err.Error(),
		})
	} else {
		res.ScreenshotPath = path
		d.bus.Log("info", "no sold-out marker found, possible restock", map[string]any{
			"target":     target.Name,
			"screenshot": path,
		})
	}
	return res
}

func (d *Detector) fail(res model.Result, msg string) model.Result {
	res.State = model.StateError
	res.Message = msg
	d.bus.Log("error", msg, map[string]any{"target": res.Target})
	return res
}

func (d *Detector) screenshotPath(name string) string {
	return filepath.Join(d.screenshotDir, strings.ReplaceAll(name, " ", "_")+"_screenshot.png")
}
