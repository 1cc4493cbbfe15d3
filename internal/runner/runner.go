package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"stockwatch/internal/config"
	"stockwatch/internal/detector"
	"stockwatch/internal/logbus"
	"stockwatch/internal/model"
	"stockwatch/internal/notify"
	"stockwatch/internal/statuslog"
)

// Session is the browser lifetime the runner owns for one run.
type Session interface {
	Page() (detector.Page, error)
	Close()
}

type Options struct {
	Cfg    config.Config
	Bus    *logbus.Bus
	Pusher notify.Pusher
	// Status is nil when file logging is disabled.
	Status *statuslog.Writer
	// Email is nil unless the run-summary email is enabled.
	Email       *notify.EmailReporter
	OpenSession func() (Session, error)
}

// Runner sequences one complete check cycle: jitter, browser launch, one
// check per target in config order, a notification per target, teardown.
type Runner struct {
	cfg    config.Config
	bus    *logbus.Bus
	pusher notify.Pusher
	status *statuslog.Writer
	email  *notify.EmailReporter
	open   func() (Session, error)

	limiter *rate.Limiter
}

func New(opts Options) *Runner {
	qps := opts.Cfg.Limits.QPS
	if qps <= 0 {
		qps = 0.5
	}
	burst := opts.Cfg.Limits.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Runner{
		cfg:     opts.Cfg,
		bus:     opts.Bus,
		pusher:  opts.Pusher,
		status:  opts.Status,
		email:   opts.Email,
		open:    opts.OpenSession,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	r.bus.Log("info", "stock check run starting", map[string]any{
		"runId":   runID,
		"targets": len(r.cfg.Targets),
	})

	// Desynchronize from the external scheduler's fixed cadence.
	delay := jitterDelay(r.cfg.Check.JitterMin(), r.cfg.Check.JitterMax())
	r.bus.Log("info", "waiting before starting automation", map[string]any{
		"runId": runID,
		"delay": delay.String(),
	})
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return r.fatal(ctx, ctx.Err())
	}

	session, err := r.open()
	if err != nil {
		return r.fatal(ctx, fmt.Errorf("launch browser session: %w", err))
	}
	defer session.Close()

	pg, err := session.Page()
	if err != nil {
		return r.fatal(ctx, fmt.Errorf("open page: %w", err))
	}

	det := detector.New(r.cfg.Check.Markers, r.cfg.Check.WaitTimeout(), r.cfg.Check.ScreenshotDir, r.bus)

	results := make([]model.Result, 0, len(r.cfg.Targets))
	for _, target := range r.cfg.Targets {
		var res model.Result
		if err := r.limiter.Wait(ctx); err != nil {
			res = model.Result{
				Target:    target.Name,
				State:     model.StateError,
				Message:   fmt.Sprintf("Error checking %s availability: %v", target.Name, err),
				CheckedAt: time.Now(),
			}
		} else {
			res = det.Check(ctx, pg, target)
		}
		results = append(results, res)
		r.report(ctx, res)
	}

	if r.email != nil {
		if err := r.email.SendRunSummary(ctx, results); err != nil {
			r.bus.Log("warn", "summary email failed", map[string]any{"error": err.Error()})
		}
	}

	r.bus.Log("info", "stock check run finished", map[string]any{"runId": runID})
	return nil
}

// report sends exactly one push notification for a result and appends the
// status line when file logging is enabled. Neither failure escalates.
func (r *Runner) report(ctx context.Context, res model.Result) {
	now := res.CheckedAt.Format("2006-01-02 15:04:05")
	title := r.cfg.Pushover.Title

	var (
		message string
		pri     notify.Priority
	)
	switch res.State {
	case model.StateError:
		message = fmt.Sprintf("Error checking %s: %s", res.Target, res.Message)
		pri = notify.PriorityLow
		title = "Error - " + title
	case model.StateInStock:
		message = fmt.Sprintf("%s is IN STOCK! 🎉 as of %s", res.Target, now)
		pri = notify.PriorityHigh
	default:
		message = fmt.Sprintf("%s is still sold out 😢 as of %s", res.Target, now)
		pri = notify.PriorityLowest
	}

	if err := r.pusher.Push(ctx, message, pri, title); err != nil {
		r.bus.Log("warn", "failed to send notification", map[string]any{
			"target": res.Target,
			"error":  err.Error(),
		})
	}
	r.appendStatus(res.CheckedAt, res.Available())
}

func (r *Runner) appendStatus(at time.Time, available bool) {
	if r.status == nil {
		return
	}
	if err := r.status.Append(at, available); err != nil {
		r.bus.Log("warn", "status log write failed", map[string]any{
			"path":  r.status.Path(),
			"error": err.Error(),
		})
	}
}

// fatal handles setup failures: log, one best-effort notification, a
// negative status record, then surface the error to the caller.
func (r *Runner) fatal(ctx context.Context, err error) error {
	r.bus.Log("error", "fatal error in stock check run", map[string]any{"error": err.Error()})

	notifyCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	message := fmt.Sprintf("Fatal error in stock check: %v", err)
	if perr := r.pusher.Push(notifyCtx, message, notify.PriorityLow, "Fatal Error - "+r.cfg.Pushover.Title); perr != nil {
		r.bus.Log("warn", "failed to send fatal notification", map[string]any{"error": perr.Error()})
	}
	r.appendStatus(time.Now(), false)
	return err
}

// jitterDelay draws uniformly from [min, max] inclusive.
func jitterDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
