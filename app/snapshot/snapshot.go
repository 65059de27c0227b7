// Package snapshot captures screenshots of configured pages and records the
// outcomes. Captures run concurrently with a bounded pool, each one isolated
// in its own browser context.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/dumontcloud/dumont-qa/app/browser"
	"github.com/dumontcloud/dumont-qa/app/config"
	"github.com/dumontcloud/dumont-qa/app/store"
)

//go:generate moq -out mocks/capturer.go -pkg mocks -skip-ensure -fmt goimports . Capturer
//go:generate moq -out mocks/recorder.go -pkg mocks -skip-ensure -fmt goimports . Recorder

// Capturer takes page screenshots, implemented by browser.Session
type Capturer interface {
	Capture(ctx context.Context, baseURL string, c browser.Capture, outFile string) (browser.CaptureResult, error)
}

// Recorder persists run results, implemented by store.SQLiteStore
type Recorder interface {
	CreateRun(ctx context.Context, run store.Run) (int64, error)
	RecordCheck(ctx context.Context, check store.Check) error
	FinishRun(ctx context.Context, id int64, passed, failed, skipped int) error
}

// Runner captures a set of pages against a target
type Runner struct {
	Capturer    Capturer
	Recorder    Recorder
	BaseURL     string
	OutDir      string
	Host        string
	Concurrency int
}

// Summary reports the outcome of a snapshot session
type Summary struct {
	RunID  int64
	Passed int
	Failed int
}

// Run captures all pages and records one check per page. A failed capture
// fails the check but never aborts the session, the remaining pages are
// still captured.
func (r *Runner) Run(ctx context.Context, pages []config.Page) (Summary, error) {
	if len(pages) == 0 {
		return Summary{}, fmt.Errorf("no pages to capture")
	}
	if err := os.MkdirAll(r.OutDir, 0o750); err != nil {
		return Summary{}, fmt.Errorf("failed to create output dir %s: %w", r.OutDir, err)
	}

	runID, err := r.Recorder.CreateRun(ctx, store.Run{Kind: store.KindSnapshot, Target: r.BaseURL, Host: r.Host})
	if err != nil {
		return Summary{}, err
	}

	concur := r.Concurrency
	if concur <= 0 {
		concur = 2
	}

	var mu sync.Mutex
	passed, failed := 0, 0

	gr := syncs.NewSizedGroup(concur, syncs.Context(ctx))
	for _, page := range pages {
		gr.Go(func(ctx context.Context) {
			check := r.capturePage(ctx, runID, page)
			mu.Lock()
			defer mu.Unlock()
			if check.Status == store.StatusPass {
				passed++
			} else {
				failed++
			}
			if err := r.Recorder.RecordCheck(ctx, check); err != nil {
				log.Printf("[WARN] failed to record check %q: %v", check.Name, err)
			}
		})
	}
	gr.Wait()

	if err := r.Recorder.FinishRun(ctx, runID, passed, failed, 0); err != nil {
		return Summary{}, err
	}

	log.Printf("[INFO] snapshot session %d done, %d passed, %d failed", runID, passed, failed)
	return Summary{RunID: runID, Passed: passed, Failed: failed}, nil
}

func (r *Runner) capturePage(ctx context.Context, runID int64, page config.Page) store.Check {
	outFile := filepath.Join(r.OutDir, fmt.Sprintf("%s-%d.png", fileName(page.Name), runID))
	st := time.Now()

	res, err := r.Capturer.Capture(ctx, r.BaseURL,
		browser.Capture{Path: page.Path, WaitFor: page.WaitFor, FullPage: page.FullPage}, outFile)

	check := store.Check{
		RunID:      runID,
		Name:       page.Name,
		Kind:       "snapshot",
		DurationMs: time.Since(st).Milliseconds(),
		Screenshot: outFile,
	}

	switch {
	case err != nil:
		check.Status = store.StatusFail
		check.Detail = err.Error()
		check.Screenshot = "" // capture failed, no file written
		log.Printf("[WARN] capture %q failed: %v", page.Name, err)
	case len(res.ConsoleErrors) > 0:
		check.Status = store.StatusFail
		check.Detail = fmt.Sprintf("%d console error(s): %s", len(res.ConsoleErrors), strings.Join(res.ConsoleErrors, "; "))
	default:
		check.Status = store.StatusPass
		if res.Status != 0 {
			check.Detail = fmt.Sprintf("status %d", res.Status)
		}
	}
	return check
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func fileName(name string) string {
	return unsafeFileChars.ReplaceAllString(strings.ToLower(name), "-")
}
