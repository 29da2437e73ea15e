// Package report renders a metrics snapshot as a standalone HTML page.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/wesleyorama2/loadlab/internal/metrics"
)

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "loadlab metrics"

// Options controls report rendering.
type Options struct {
	Title string
	// Source describes where the snapshot came from (URL or file)
	Source string
	// GeneratedAt defaults to now
	GeneratedAt time.Time
}

// ReportData contains all data needed to render the HTML report.
type ReportData struct {
	Title       string
	Source      string
	GeneratedAt time.Time
	metrics.Snapshot
	Latest      *metrics.MetricPoint
	HistoryJSON template.JS
}

// HistoryPoint is one entry of the chart series.
type HistoryPoint struct {
	Time       string  `json:"time"`
	AvgLatency float64 `json:"avgLatency"`
	P95Latency float64 `json:"p95Latency"`
	ErrorRate  float64 `json:"errorRate"`
}

// GenerateHTML renders snapshot and writes it to outputPath.
func GenerateHTML(snapshot metrics.Snapshot, opts Options, outputPath string) error {
	html, err := GenerateHTMLString(snapshot, opts)
	if err != nil {
		return errors.Wrap(err, "failed to generate HTML")
	}

	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		return errors.Wrap(err, "failed to write HTML file")
	}
	return nil
}

// GenerateHTMLString renders snapshot and returns the page.
func GenerateHTMLString(snapshot metrics.Snapshot, opts Options) (string, error) {
	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}

	historyJSON, err := convertHistoryJSON(snapshot.History)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert history")
	}

	data := ReportData{
		Title:       opts.Title,
		Source:      opts.Source,
		GeneratedAt: opts.GeneratedAt,
		Snapshot:    snapshot,
		HistoryJSON: template.JS(historyJSON),
	}
	if data.Title == "" {
		data.Title = DefaultTitle
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	if n := len(snapshot.History); n > 0 {
		latest := snapshot.History[n-1]
		data.Latest = &latest
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to execute template")
	}
	return buf.String(), nil
}

// ReadSnapshot decodes a snapshot as served by GET /metrics.
func ReadSnapshot(r io.Reader) (metrics.Snapshot, error) {
	var snapshot metrics.Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return metrics.Snapshot{}, errors.Wrap(err, "invalid metrics snapshot")
	}
	return snapshot, nil
}

// FetchSnapshot downloads a snapshot from a GET /metrics URL.
func FetchSnapshot(ctx context.Context, client *http.Client, url string) (metrics.Snapshot, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return metrics.Snapshot{}, errors.Wrapf(err, "invalid url %q", url)
	}
	resp, err := client.Do(req)
	if err != nil {
		return metrics.Snapshot{}, errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return metrics.Snapshot{}, errors.Errorf("failed to fetch %s: %s", url, resp.Status)
	}
	return ReadSnapshot(resp.Body)
}

// convertHistoryJSON converts the history to JSON for chart rendering.
func convertHistoryJSON(history []metrics.MetricPoint) (string, error) {
	points := make([]HistoryPoint, len(history))
	for i, p := range history {
		points[i] = HistoryPoint{
			Time:       p.Time().Format("15:04:05"),
			AvgLatency: p.AvgLatency,
			P95Latency: p.P95Latency,
			ErrorRate:  p.ErrorRate,
		}
	}

	jsonBytes, err := json.Marshal(points)
	if err != nil {
		return "[]", err
	}
	return string(jsonBytes), nil
}

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatNumber":  formatNumber,
		"formatLatency": formatLatency,
		"formatPercent": formatPercent,
		"formatTime":    func(t time.Time) string { return t.Format(time.RFC1123) },
		"rateClass":     rateClass,
	}
}

// formatNumber formats a large number with commas.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// formatLatency formats a latency in milliseconds.
func formatLatency(ms float64) string {
	switch {
	case ms <= 0:
		return "0ms"
	case ms < 1:
		return fmt.Sprintf("%.0fµs", ms*1000)
	case ms < 10:
		return fmt.Sprintf("%.2fms", ms)
	case ms < 1000:
		return fmt.Sprintf("%.1fms", ms)
	case ms < 10000:
		return fmt.Sprintf("%.2fs", ms/1000)
	default:
		return fmt.Sprintf("%.1fs", ms/1000)
	}
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// rateClass maps an error rate to a card style.
func rateClass(rate float64) string {
	switch {
	case rate <= 0:
		return "success"
	case rate < 0.05:
		return "warning"
	default:
		return "error"
	}
}
