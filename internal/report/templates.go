package report

// htmlTemplate is the main HTML template for the report
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f8fafc;
            --text-primary: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
            --accent-primary: #3b82f6;
            --accent-success: #22c55e;
            --accent-warning: #f59e0b;
            --accent-error: #ef4444;
            --shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: var(--bg-secondary);
            color: var(--text-primary);
            line-height: 1.6;
        }

        .container { max-width: 1200px; margin: 0 auto; padding: 2rem; }

        .header {
            background: var(--bg-primary);
            border-radius: 12px;
            padding: 2rem;
            margin-bottom: 2rem;
            box-shadow: var(--shadow);
        }
        .header h1 { font-size: 1.75rem; font-weight: 700; }
        .header .meta { color: var(--text-secondary); font-size: 0.875rem; }

        .metrics-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 1rem;
            margin-bottom: 2rem;
        }
        .metric-card {
            background: var(--bg-primary);
            border-radius: 12px;
            padding: 1.25rem;
            box-shadow: var(--shadow);
            border-left: 4px solid var(--accent-primary);
        }
        .metric-card.success { border-left-color: var(--accent-success); }
        .metric-card.warning { border-left-color: var(--accent-warning); }
        .metric-card.error { border-left-color: var(--accent-error); }
        .metric-label { color: var(--text-secondary); font-size: 0.75rem; text-transform: uppercase; }
        .metric-value { font-size: 1.5rem; font-weight: 700; }

        .section {
            background: var(--bg-primary);
            border-radius: 12px;
            padding: 1.5rem;
            margin-bottom: 2rem;
            box-shadow: var(--shadow);
        }
        .section h2 { font-size: 1.125rem; margin-bottom: 1rem; }
        .chart-wrapper { position: relative; height: 300px; }
        .empty { color: var(--text-secondary); }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <div class="meta">Generated {{formatTime .GeneratedAt}}{{if .Source}} from {{.Source}}{{end}}</div>
        </div>

        <div class="metrics-grid">
            <div class="metric-card">
                <div class="metric-label">Total Requests</div>
                <div class="metric-value" id="total-requests">{{formatNumber .TotalRequests}}</div>
            </div>
            <div class="metric-card {{rateClass .ErrorRate}}">
                <div class="metric-label">Errors</div>
                <div class="metric-value" id="total-errors">{{formatNumber .TotalErrors}}</div>
            </div>
            <div class="metric-card {{rateClass .ErrorRate}}">
                <div class="metric-label">Error Rate</div>
                <div class="metric-value" id="error-rate">{{formatPercent .ErrorRate}}</div>
            </div>
            <div class="metric-card">
                <div class="metric-label">Avg Latency</div>
                <div class="metric-value" id="avg-latency">{{formatLatency .AvgLatency}}</div>
            </div>
            <div class="metric-card">
                <div class="metric-label">Min Latency</div>
                <div class="metric-value" id="min-latency">{{formatLatency .MinLatency}}</div>
            </div>
            <div class="metric-card">
                <div class="metric-label">Max Latency</div>
                <div class="metric-value" id="max-latency">{{formatLatency .MaxLatency}}</div>
            </div>
            {{with .Latest}}
            <div class="metric-card">
                <div class="metric-label">Latest P95</div>
                <div class="metric-value" id="latest-p95">{{formatLatency .P95Latency}}</div>
            </div>
            {{end}}
        </div>

        <div class="section">
            <h2>Latency History</h2>
            {{if .History}}
            <div class="chart-wrapper"><canvas id="latencyChart"></canvas></div>
            {{else}}
            <p class="empty">No intervals have closed yet.</p>
            {{end}}
        </div>

        <div class="section">
            <h2>Error Rate History</h2>
            {{if .History}}
            <div class="chart-wrapper"><canvas id="errorChart"></canvas></div>
            {{else}}
            <p class="empty">No intervals have closed yet.</p>
            {{end}}
        </div>
    </div>

    <script>
        const history = {{.HistoryJSON}};

        if (history.length > 0 && typeof Chart !== 'undefined') {
            const labels = history.map(d => d.time);

            new Chart(document.getElementById('latencyChart'), {
                type: 'line',
                data: {
                    labels: labels,
                    datasets: [
                        { label: 'Avg (ms)', data: history.map(d => d.avgLatency), borderColor: '#3b82f6', tension: 0.3 },
                        { label: 'P95 (ms)', data: history.map(d => d.p95Latency), borderColor: '#8b5cf6', tension: 0.3 },
                    ],
                },
                options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true } } },
            });

            new Chart(document.getElementById('errorChart'), {
                type: 'bar',
                data: {
                    labels: labels,
                    datasets: [
                        { label: 'Error Rate (%)', data: history.map(d => d.errorRate * 100), backgroundColor: '#ef4444' },
                    ],
                },
                options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true, max: 100 } } },
            });
        }
    </script>
</body>
</html>
`
