// Package probe runs http health checks against a Dumont Cloud target.
// Route probes fetch pages and match marker text, api probes go through the
// bearer-token client. Probes run concurrently with a bounded pool and every
// outcome is recorded, a failed probe never aborts the session.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/dumontcloud/dumont-qa/app/client"
	"github.com/dumontcloud/dumont-qa/app/config"
	"github.com/dumontcloud/dumont-qa/app/store"
)

// Recorder persists run results, implemented by store.SQLiteStore
type Recorder interface {
	CreateRun(ctx context.Context, run store.Run) (int64, error)
	RecordCheck(ctx context.Context, check store.Check) error
	FinishRun(ctx context.Context, id int64, passed, failed, skipped int) error
}

// Prober runs configured probes against a target
type Prober struct {
	Client      *client.Client
	Recorder    Recorder
	BaseURL     string
	Host        string
	Conditions  *config.Conditions
	Concurrency int
	HTTPTimeout time.Duration
}

// Summary reports the outcome of a probe session
type Summary struct {
	RunID   int64
	Passed  int
	Failed  int
	Skipped int
}

// HasFailures reports whether the session had any failed checks
func (s Summary) HasFailures() bool { return s.Failed > 0 }

// Run executes all probes and records one check per probe. When host
// conditions are not met every probe is recorded as skipped.
func (p *Prober) Run(ctx context.Context, probes []config.Probe) (Summary, error) {
	if len(probes) == 0 {
		return Summary{}, fmt.Errorf("no probes to run")
	}

	runID, err := p.Recorder.CreateRun(ctx, store.Run{Kind: store.KindProbe, Target: p.BaseURL, Host: p.Host})
	if err != nil {
		return Summary{}, err
	}

	if ok, reason := CheckConditions(p.Conditions); !ok {
		log.Printf("[WARN] conditions not met, skipping probe session: %s", reason)
		for _, probe := range probes {
			check := store.Check{RunID: runID, Name: probe.Name, Kind: probe.Kind,
				Status: store.StatusSkip, Detail: reason}
			if err := p.Recorder.RecordCheck(ctx, check); err != nil {
				log.Printf("[WARN] failed to record check %q: %v", probe.Name, err)
			}
		}
		if err := p.Recorder.FinishRun(ctx, runID, 0, 0, len(probes)); err != nil {
			return Summary{}, err
		}
		return Summary{RunID: runID, Skipped: len(probes)}, nil
	}

	concur := p.Concurrency
	if concur <= 0 {
		concur = 4
	}

	var mu sync.Mutex
	passed, failed := 0, 0

	gr := syncs.NewSizedGroup(concur, syncs.Context(ctx))
	for _, probe := range probes {
		gr.Go(func(ctx context.Context) {
			check := p.runProbe(ctx, runID, probe)
			mu.Lock()
			defer mu.Unlock()
			if check.Status == store.StatusPass {
				passed++
			} else {
				failed++
			}
			if err := p.Recorder.RecordCheck(ctx, check); err != nil {
				log.Printf("[WARN] failed to record check %q: %v", probe.Name, err)
			}
		})
	}
	gr.Wait()

	if err := p.Recorder.FinishRun(ctx, runID, passed, failed, 0); err != nil {
		return Summary{}, err
	}

	log.Printf("[INFO] probe session %d done, %d passed, %d failed", runID, passed, failed)
	return Summary{RunID: runID, Passed: passed, Failed: failed}, nil
}

func (p *Prober) runProbe(ctx context.Context, runID int64, probe config.Probe) store.Check {
	st := time.Now()
	check := store.Check{RunID: runID, Name: probe.Name, Kind: probe.Kind}

	var status int
	var body []byte
	var err error

	switch probe.Kind {
	case config.KindAPI:
		status, body, err = p.Client.Get(ctx, probe.Path)
	default:
		status, body, err = p.fetchRoute(ctx, probe.Path)
	}
	check.DurationMs = time.Since(st).Milliseconds()

	switch {
	case err != nil:
		check.Status = store.StatusFail
		check.Detail = err.Error()
		log.Printf("[WARN] probe %q failed: %v", probe.Name, err)
	case status != probe.Status:
		check.Status = store.StatusFail
		check.Detail = fmt.Sprintf("unexpected status %d, want %d", status, probe.Status)
	case probe.Marker != "" && !strings.Contains(string(body), probe.Marker):
		check.Status = store.StatusFail
		check.Detail = fmt.Sprintf("marker %q not found in response", probe.Marker)
	default:
		check.Status = store.StatusPass
	}
	return check
}

func (p *Prober) fetchRoute(ctx context.Context, path string) (status int, body []byte, err error) {
	timeout := p.HTTPTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(p.BaseURL, "/")+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("make request for %s: %w", path, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return 0, nil, fmt.Errorf("read response for %s: %w", path, err)
	}
	return resp.StatusCode, data, nil
}
