package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumontcloud/dumont-qa/app/config"
	"github.com/dumontcloud/dumont-qa/app/probe"
	"github.com/dumontcloud/dumont-qa/app/runner/mocks"
)

func TestRunner_RunsImmediatelyAndStops(t *testing.T) {
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			return probe.Summary{RunID: 1, Passed: 2}, nil
		},
	}
	r := Runner{
		Prober:   prober,
		Probes:   []config.Probe{{Name: "landing", Path: "/demo-app"}},
		Target:   "https://dumont.cloud",
		Schedule: "@every 1h",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Do(ctx) }()

	require.Eventually(t, func() bool { return len(prober.RunCalls()) == 1 },
		time.Second, 10*time.Millisecond, "first session should run right away")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	require.Len(t, prober.RunCalls(), 1)
	assert.Equal(t, "landing", prober.RunCalls()[0].Probes[0].Name)
}

func TestRunner_BadSchedule(t *testing.T) {
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			return probe.Summary{}, nil
		},
	}
	r := Runner{Prober: prober, Schedule: "not a cron spec"}
	err := r.Do(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule watch")
}

func TestRunner_EmptySchedule(t *testing.T) {
	r := Runner{}
	err := r.Do(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule not set")
}

func TestRunner_RetriesFailedSession(t *testing.T) {
	calls := 0
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			calls++
			if calls < 3 {
				return probe.Summary{RunID: int64(calls), Failed: 1}, nil
			}
			return probe.Summary{RunID: int64(calls), Passed: 1}, nil
		},
	}
	notifier := &mocks.NotifierMock{
		SendFunc: func(ctx context.Context, subj, text string) error { return nil },
	}
	r := Runner{
		Prober:             prober,
		Target:             "https://dumont.cloud",
		Attempts:           3,
		Notifier:           notifier,
		NotifyOnFailure:    true,
		NotifyOnCompletion: true,
		retryDelay:         time.Millisecond,
	}

	r.runSession(context.Background())

	assert.Equal(t, 3, calls, "should retry until the session passes")
	require.Len(t, notifier.SendCalls(), 1)
	assert.Equal(t, "dumont-qa: session passed on https://dumont.cloud", notifier.SendCalls()[0].Subj)
}

func TestRunner_NotifiesOnFailure(t *testing.T) {
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			return probe.Summary{RunID: 7, Passed: 1, Failed: 2}, nil
		},
	}
	notifier := &mocks.NotifierMock{
		SendFunc: func(ctx context.Context, subj, text string) error { return nil },
	}
	reporter := &mocks.ReporterMock{
		GenerateFunc: func(ctx context.Context, runID int64) (string, error) {
			return "/tmp/report-probe-7.md", nil
		},
	}
	r := Runner{
		Prober:          prober,
		Target:          "https://dumont.cloud",
		Attempts:        1,
		Notifier:        notifier,
		Reporter:        reporter,
		NotifyOnFailure: true,
		retryDelay:      time.Millisecond,
	}

	r.runSession(context.Background())

	require.Len(t, notifier.SendCalls(), 1)
	assert.Equal(t, "dumont-qa: session FAILED on https://dumont.cloud", notifier.SendCalls()[0].Subj)
	assert.Contains(t, notifier.SendCalls()[0].Text, "2 failed")
	assert.Contains(t, notifier.SendCalls()[0].Text, "report: /tmp/report-probe-7.md")

	require.Len(t, reporter.GenerateCalls(), 1)
	assert.Equal(t, int64(7), reporter.GenerateCalls()[0].RunID)
}

func TestRunner_SuppressesUnwantedNotifications(t *testing.T) {
	tbl := []struct {
		name         string
		failed       int
		onFailure    bool
		onCompletion bool
		wantSends    int
	}{
		{"failure suppressed", 1, false, true, 0},
		{"completion suppressed", 0, true, false, 0},
		{"failure delivered", 1, true, false, 1},
		{"completion delivered", 0, false, true, 1},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			prober := &mocks.SessionRunnerMock{
				RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
					return probe.Summary{RunID: 1, Passed: 1, Failed: tt.failed}, nil
				},
			}
			notifier := &mocks.NotifierMock{
				SendFunc: func(ctx context.Context, subj, text string) error { return nil },
			}
			r := Runner{
				Prober:             prober,
				Attempts:           1,
				Notifier:           notifier,
				NotifyOnFailure:    tt.onFailure,
				NotifyOnCompletion: tt.onCompletion,
				retryDelay:         time.Millisecond,
			}
			r.runSession(context.Background())
			assert.Len(t, notifier.SendCalls(), tt.wantSends)
		})
	}
}

func TestRunner_ReporterErrorDoesNotBlockNotification(t *testing.T) {
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			return probe.Summary{RunID: 3, Passed: 1}, nil
		},
	}
	notifier := &mocks.NotifierMock{
		SendFunc: func(ctx context.Context, subj, text string) error { return nil },
	}
	reporter := &mocks.ReporterMock{
		GenerateFunc: func(ctx context.Context, runID int64) (string, error) {
			return "", errors.New("disk full")
		},
	}
	r := Runner{
		Prober:             prober,
		Attempts:           1,
		Notifier:           notifier,
		Reporter:           reporter,
		NotifyOnCompletion: true,
		retryDelay:         time.Millisecond,
	}

	r.runSession(context.Background())

	require.Len(t, notifier.SendCalls(), 1)
	assert.NotContains(t, notifier.SendCalls()[0].Text, "report:")
}

func TestRunner_SkipsSessionOnCanceledContext(t *testing.T) {
	prober := &mocks.SessionRunnerMock{
		RunFunc: func(ctx context.Context, probes []config.Probe) (probe.Summary, error) {
			return probe.Summary{}, nil
		},
	}
	r := Runner{Prober: prober, Attempts: 1, retryDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.runSession(ctx)

	assert.Empty(t, prober.RunCalls())
}
