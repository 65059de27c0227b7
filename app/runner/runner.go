// Package runner schedules recurring probe sessions. Each scheduled tick runs
// a full probe session with retries and optionally delivers the session report
// to the configured notification destinations.
package runner

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/robfig/cron/v3"

	"github.com/dumontcloud/dumont-qa/app/config"
	"github.com/dumontcloud/dumont-qa/app/probe"
)

//go:generate moq -out mocks/session_runner.go -pkg mocks -skip-ensure -fmt goimports . SessionRunner
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier
//go:generate moq -out mocks/reporter.go -pkg mocks -skip-ensure -fmt goimports . Reporter

// SessionRunner executes a single probe session, implemented by probe.Prober
type SessionRunner interface {
	Run(ctx context.Context, probes []config.Probe) (probe.Summary, error)
}

// Notifier delivers session outcomes, implemented by report.Sender
type Notifier interface {
	Send(ctx context.Context, subj, text string) error
}

// Reporter writes a markdown report for a finished run, implemented by report.Generator
type Reporter interface {
	Generate(ctx context.Context, runID int64) (string, error)
}

// Runner runs probe sessions on a cron schedule
type Runner struct {
	Prober   SessionRunner
	Probes   []config.Probe
	Target   string // base url, used in notification subjects
	Schedule string // standard 5-field cron spec or @every descriptor
	Attempts int    // retry attempts per session, min 1

	Notifier           Notifier // nil disables notifications
	Reporter           Reporter // nil disables report files
	NotifyOnFailure    bool
	NotifyOnCompletion bool

	retryDelay time.Duration // base delay between attempts, 2s if not set
}

// Do runs one session immediately, then repeats per schedule until ctx is
// canceled. Blocks for the lifetime of the watch.
func (r *Runner) Do(ctx context.Context) error {
	if r.Schedule == "" {
		return fmt.Errorf("watch schedule not set")
	}

	r.runSession(ctx) // first session right away, the schedule covers the rest

	scheduler := cron.New()
	id, err := scheduler.AddFunc(r.Schedule, func() { r.runSession(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule watch %q: %w", r.Schedule, err)
	}
	scheduler.Start()
	log.Printf("[INFO] watch started, schedule %q, next run %s", r.Schedule, scheduler.Entry(id).Next.Format(time.RFC3339))

	<-ctx.Done()
	stopCtx := scheduler.Stop() // waits for an in-flight session to finish
	<-stopCtx.Done()
	log.Printf("[INFO] watch terminated")
	return nil
}

// runSession executes one probe session with retries and handles its outcome
func (r *Runner) runSession(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := r.retryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var summary probe.Summary
	retry := repeater.New(&strategy.Backoff{Repeats: attempts, Duration: delay, Factor: 2})
	err := retry.Do(ctx, func() error {
		var e error
		summary, e = r.Prober.Run(ctx, r.Probes)
		if e != nil {
			return e
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d of %d checks failed", summary.Failed, summary.Passed+summary.Failed)
		}
		return nil
	})

	switch {
	case err != nil:
		log.Printf("[WARN] session failed after %d attempts: %v", attempts, err)
	case summary.Skipped > 0 && summary.Passed == 0 && summary.Failed == 0:
		log.Printf("[INFO] session skipped, host conditions not met")
	default:
		log.Printf("[INFO] session completed, %d passed", summary.Passed)
	}

	reportText := r.makeReport(ctx, summary)
	r.deliver(ctx, summary, err != nil, reportText)
}

// makeReport writes the report file for the run and returns a short summary
// line to include in notifications
func (r *Runner) makeReport(ctx context.Context, summary probe.Summary) string {
	text := fmt.Sprintf("target %s: %d passed, %d failed, %d skipped",
		r.Target, summary.Passed, summary.Failed, summary.Skipped)

	if r.Reporter == nil || summary.RunID == 0 {
		return text
	}
	file, err := r.Reporter.Generate(ctx, summary.RunID)
	if err != nil {
		log.Printf("[WARN] failed to generate report for run %d: %v", summary.RunID, err)
		return text
	}
	log.Printf("[INFO] report saved to %s", file)
	return text + "\nreport: " + file
}

func (r *Runner) deliver(ctx context.Context, summary probe.Summary, failed bool, text string) {
	if r.Notifier == nil {
		return
	}
	if failed && !r.NotifyOnFailure {
		return
	}
	if !failed && !r.NotifyOnCompletion {
		return
	}

	subj := fmt.Sprintf("dumont-qa: session passed on %s", r.Target)
	if failed {
		subj = fmt.Sprintf("dumont-qa: session FAILED on %s", r.Target)
	}
	if err := r.Notifier.Send(ctx, subj, text); err != nil {
		log.Printf("[WARN] failed to deliver notification: %v", err)
	}
}
