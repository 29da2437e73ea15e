package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/report"
)

func main() {
	outputPath := "sample-report.html"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	snapshot := createSampleSnapshot(rand.New(rand.NewSource(42)))
	err := report.GenerateHTML(snapshot, report.Options{
		Title:  "Sample loadlab report",
		Source: "synthetic data",
	}, outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample report generated: %s\n", outputPath)
}

// createSampleSnapshot fills an engine with a full history of synthetic
// intervals: a steady baseline, a latency spike, then a burst of failures.
func createSampleSnapshot(rng *rand.Rand) metrics.Snapshot {
	engine := metrics.NewEngine()
	capacity := engine.Config().HistoryCapacity

	for i := 0; i < capacity; i++ {
		base, spread, failRate := 40.0, 20.0, 0.01
		switch {
		case i >= capacity/2 && i < capacity/2+5:
			base, spread = 400, 300
		case i >= capacity-5:
			failRate = 0.25
		}

		for n := 0; n < 200; n++ {
			latency := base + rng.Float64()*spread
			engine.Record(latency, rng.Float64() >= failRate)
		}
		engine.Flush()
	}
	return engine.Snapshot()
}
