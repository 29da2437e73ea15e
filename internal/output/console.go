// Package output renders metrics and load-run results for the console.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/loadgen"
	"github.com/wesleyorama2/loadlab/internal/metrics"
)

const (
	boxHorizontal = "━"
	lineWidth     = 56
)

// Console writes human-readable output.
//
// Console is safe for concurrent use; each Print call writes whole lines.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	colors *ColorScheme
}

// NewConsole creates a console writing to w (stdout when nil).
func NewConsole(w io.Writer, useColors bool) *Console {
	if w == nil {
		w = os.Stdout
	}
	colors := NoColorScheme()
	if useColors {
		colors = DefaultColorScheme()
	}
	return &Console{w: w, colors: colors}
}

// PrintSnapshot writes one line for a pushed snapshot: the cumulative
// totals and the most recently closed interval, if any.
func (c *Console) PrintSnapshot(s metrics.Snapshot) {
	cs := c.colors

	var b strings.Builder
	fmt.Fprintf(&b, "%s  reqs %s  errs %s  avg %s  min %s  max %s",
		cs.Dim.Sprint(time.Now().Format("15:04:05")),
		cs.Value.Sprint(formatNumber(s.TotalRequests)),
		cs.ErrorRate(s.ErrorRate).Sprintf("%s (%s)", formatNumber(s.TotalErrors), formatPercent(s.ErrorRate)),
		cs.Value.Sprint(formatMs(s.AvgLatency)),
		cs.Value.Sprint(formatMs(s.MinLatency)),
		cs.Value.Sprint(formatMs(s.MaxLatency)),
	)

	if n := len(s.History); n > 0 {
		p := s.History[n-1]
		fmt.Fprintf(&b, "  %s avg %s p95 %s err %s",
			cs.Accent.Sprint("│ window"),
			cs.Value.Sprint(formatMs(p.AvgLatency)),
			cs.Value.Sprint(formatMs(p.P95Latency)),
			cs.ErrorRate(p.ErrorRate).Sprint(formatPercent(p.ErrorRate)),
		)
	}

	c.writeln(b.String())
}

// PrintSummary writes the result of a load run.
func (c *Console) PrintSummary(s *loadgen.Summary) {
	cs := c.colors
	line := strings.Repeat(boxHorizontal, lineWidth)

	lines := []string{
		"",
		cs.Title.Sprint(line),
		cs.Title.Sprint("Load Run Summary"),
		cs.Title.Sprint(line),
		c.row("Target", cs.Value.Sprint(s.Target)),
		c.row("Duration", cs.Value.Sprint(formatDuration(s.Duration))),
		c.row("VUs", cs.Value.Sprint(s.VUs)),
	}
	if s.Rate > 0 {
		lines = append(lines, c.row("Rate", cs.Value.Sprintf("%.1f/s", s.Rate)))
	}

	lines = append(lines,
		"",
		c.row("Requests", cs.Value.Sprint(formatNumber(s.TotalRequests))),
		c.row("Errors", cs.ErrorRate(s.ErrorRate).Sprint(formatNumber(s.TotalErrors))),
		c.row("Error Rate", cs.ErrorRate(s.ErrorRate).Sprint(formatPercent(s.ErrorRate))),
		c.row("Throughput", cs.Value.Sprintf("%.1f req/s", s.Throughput)),
		"",
		cs.Title.Sprint("Latency"),
		c.row("Avg", cs.Value.Sprint(formatMs(s.AvgLatency))),
		c.row("Min", cs.Value.Sprint(formatMs(s.MinLatency))),
		c.row("Max", cs.Value.Sprint(formatMs(s.MaxLatency))),
		c.row("P50", cs.Value.Sprint(formatMs(s.P50))),
		c.row("P95", cs.Value.Sprint(formatMs(s.P95))),
		c.row("P99", cs.Value.Sprint(formatMs(s.P99))),
		c.row("Server Avg", cs.Value.Sprint(formatMs(s.ServerAvgDuration))),
	)

	if codes := s.SortedStatusCodes(); len(codes) > 0 {
		lines = append(lines, "", cs.Title.Sprint("Status Codes"))
		for _, code := range codes {
			label := fmt.Sprintf("%d", code)
			if code == 0 {
				label = "transport error"
			}
			lines = append(lines, c.row(label, cs.Status(code).Sprint(formatNumber(s.StatusCodes[code]))))
		}
	}

	lines = append(lines, cs.Title.Sprint(line))
	c.writeln(lines...)
}

// PrintPresets writes the preset catalog as a table.
func (c *Console) PrintPresets(presets []config.Preset) {
	cs := c.colors
	header := fmt.Sprintf("%-16s %8s %12s %8s %8s", "NAME", "DELAY", "CPU LOAD", "MEMORY", "JITTER")

	lines := []string{cs.Title.Sprint(header)}
	for _, p := range presets {
		name := cs.Accent.Sprintf("%-16s", p.Name)
		if p.Delay < 0 {
			name = cs.Bad.Sprintf("%-16s", p.Name)
		}
		lines = append(lines, fmt.Sprintf("%s %8s %12s %8s %8s",
			name,
			fmt.Sprintf("%dms", p.Delay),
			formatNumber(p.CPULoad),
			fmt.Sprintf("%dMB", p.MemoryStress),
			fmt.Sprintf("%dms", p.Jitter),
		))
	}
	c.writeln(lines...)
}

// Successf writes a green confirmation line.
func (c *Console) Successf(format string, args ...interface{}) {
	c.writeln(c.colors.Good.Sprint("✓ ") + fmt.Sprintf(format, args...))
}

func (c *Console) row(label, value string) string {
	return fmt.Sprintf("%s %s", c.colors.Label.Sprintf("%-15s", label+":"), value)
}

func (c *Console) writeln(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(c.w, line)
	}
}

// formatMs formats a latency in milliseconds.
func formatMs(ms float64) string {
	switch {
	case ms <= 0:
		return "0ms"
	case ms < 1:
		return fmt.Sprintf("%.0fµs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
