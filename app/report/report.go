// Package report renders markdown QA-session reports from recorded runs and
// optionally delivers them to configured destinations. Reports follow the
// shape of the manual session write-ups the team used to produce by hand:
// summary, environment, per-check table and a failures section.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/dumontcloud/dumont-qa/app/store"
)

// Reader provides access to recorded runs, implemented by store.SQLiteStore
type Reader interface {
	GetRun(ctx context.Context, id int64) (store.Run, error)
	GetChecks(ctx context.Context, runID int64) ([]store.Check, error)
	LastRun(ctx context.Context, kind string) (store.Run, error)
}

// Generator builds markdown reports from recorded runs
type Generator struct {
	Reader Reader
	OutDir string
}

// GenerateLast renders a report for the most recent run of the given kind
// (any kind if empty) and writes it to the output directory.
func (g *Generator) GenerateLast(ctx context.Context, kind string) (string, error) {
	run, err := g.Reader.LastRun(ctx, kind)
	if err != nil {
		return "", err
	}
	return g.Generate(ctx, run.ID)
}

// Generate renders a report for the given run and writes it to the output
// directory. Returns the path of the written file.
func (g *Generator) Generate(ctx context.Context, runID int64) (string, error) {
	run, err := g.Reader.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	checks, err := g.Reader.GetChecks(ctx, runID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.OutDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report dir %s: %w", g.OutDir, err)
	}

	content := Render(run, checks)
	file := filepath.Join(g.OutDir, fmt.Sprintf("report-%s-%d.md", run.Kind, run.ID))
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", file, err)
	}

	log.Printf("[INFO] report for run %d written to %s", runID, file)
	return file, nil
}

// Render builds the markdown document for a run
func Render(run store.Run, checks []store.Check) string {
	b := &strings.Builder{}

	fmt.Fprintf(b, "# QA Session Report - %s run #%d\n\n", run.Kind, run.ID)
	fmt.Fprintf(b, "- **Target**: %s\n", run.Target)
	if run.Host != "" {
		fmt.Fprintf(b, "- **Host**: %s\n", run.Host)
	}
	fmt.Fprintf(b, "- **Started**: %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(b, "- **Finished**: %s (%s)\n", run.FinishedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(b, "- **Result**: %s\n\n", verdict(run))

	b.WriteString("## Environment\n\n")
	for _, line := range envInfo() {
		fmt.Fprintf(b, "- %s\n", line)
	}
	b.WriteString("\n## Checks\n\n")

	b.WriteString("| Check | Kind | Status | Duration | Detail |\n")
	b.WriteString("|-------|------|--------|----------|--------|\n")
	for _, c := range checks {
		fmt.Fprintf(b, "| %s | %s | %s | %dms | %s |\n",
			c.Name, c.Kind, statusBadge(c.Status), c.DurationMs, escapeCell(c.Detail))
	}

	failures := failedChecks(checks)
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n")
		for _, c := range failures {
			fmt.Fprintf(b, "\n### %s\n\n", c.Name)
			fmt.Fprintf(b, "%s\n", c.Detail)
			if c.Screenshot != "" {
				fmt.Fprintf(b, "\n![%s](%s)\n", c.Name, c.Screenshot)
			}
		}
	}

	return b.String()
}

func verdict(run store.Run) string {
	switch {
	case run.Failed > 0:
		return fmt.Sprintf("FAILED - %d passed, %d failed, %d skipped", run.Passed, run.Failed, run.Skipped)
	case run.Skipped > 0 && run.Passed == 0:
		return fmt.Sprintf("SKIPPED - %d skipped", run.Skipped)
	default:
		return fmt.Sprintf("PASSED - %d passed, %d skipped", run.Passed, run.Skipped)
	}
}

func statusBadge(status string) string {
	switch status {
	case store.StatusPass:
		return "✅ pass"
	case store.StatusFail:
		return "❌ fail"
	case store.StatusSkip:
		return "⏭ skip"
	}
	return status
}

func failedChecks(checks []store.Check) []store.Check {
	var res []store.Check
	for _, c := range checks {
		if c.Status == store.StatusFail {
			res = append(res, c)
		}
	}
	return res
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// envInfo collects best-effort host details for the environment section,
// collection errors drop the line rather than fail the report
func envInfo() []string {
	var res []string
	if info, err := host.Info(); err == nil {
		res = append(res, fmt.Sprintf("os: %s %s (%s)", info.Platform, info.PlatformVersion, info.KernelVersion))
	}
	if cores, err := cpu.Counts(true); err == nil {
		res = append(res, fmt.Sprintf("cpu: %d cores", cores))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		res = append(res, fmt.Sprintf("memory: %.1fGB total, %.1f%% used",
			float64(vm.Total)/(1024*1024*1024), vm.UsedPercent))
	}
	if len(res) == 0 {
		res = append(res, "unavailable")
	}
	return res
}
