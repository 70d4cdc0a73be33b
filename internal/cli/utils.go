// Package cli provides output formatting for the comap command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/proteomica/comap/internal/catalog"
	"github.com/proteomica/comap/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// WriteRunSummary writes a run summary to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRunSummary(w io.Writer, run *models.Run, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	default:
		writeRunSummaryText(w, run)
		return nil
	}
}

func writeRunSummaryText(w io.Writer, run *models.Run) {
	fmt.Fprintf(w, "\nRun %s (%s)\n", run.ID, run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Inputs:             %s\n", run.LinkagePath)
	fmt.Fprintf(w, "                    %s\n", run.ItemsPath)
	fmt.Fprintf(w, "                    %s\n", run.ComplexesPath)
	if run.InputDigest != "" {
		fmt.Fprintf(w, "Input digest:       %s\n", Truncate(run.InputDigest, 16))
	}
	fmt.Fprintf(w, "Items:              %d\n", run.NumItems)
	fmt.Fprintf(w, "Complexes:          %d (%d captured, %d skipped, %d uncaptured)\n",
		run.NumComplexes, run.NumCaptured, run.NumSkipped, run.NumUncaptured)
	fmt.Fprintf(w, "Max distance:       %.4f\n", run.MaxDistance)
	fmt.Fprintf(w, "Highest threshold:  %.4f\n", run.HighestThreshold)
	fmt.Fprintf(w, "Fallback threshold: %.4f (%d clusters)\n", run.FallbackThreshold, run.FallbackClusters)
	fmt.Fprintf(w, "Mean Jaccard:       %.4f\n", run.MeanJaccard)

	if run.Assignment != nil && len(run.Assignment.Captured) > 0 {
		fmt.Fprintf(w, "\nCaptured complexes:\n")
		for _, c := range run.Assignment.Captured {
			fmt.Fprintf(w, "  %3d  %-42s J=%.3f  t=%.4f  size=%d\n",
				c.Label, Truncate(c.Name, 40), c.Jaccard, c.Threshold, c.ClusterSize)
		}
	}
	fmt.Fprintln(w)
}

// WriteRunList writes a run listing to w in the given format.
func WriteRunList(w io.Writer, runs []*models.Run, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	default:
		writeRunListText(w, runs)
		return nil
	}
}

func writeRunListText(w io.Writer, runs []*models.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %6s  %9s  %10s\n", "ID", "CREATED", "ITEMS", "CAPTURED", "THRESHOLD")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %6d  %9d  %10.4f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.NumItems, r.NumCaptured, r.HighestThreshold)
	}
}

// WriteCutResult writes a flat cut to w in the given format.
func WriteCutResult(w io.Writer, result *models.CutResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		writeCutResultText(w, result)
		return nil
	}
}

func writeCutResultText(w io.Writer, result *models.CutResult) {
	fmt.Fprintf(w, "\n%d clusters at threshold %.4f\n\n", result.NumClusters, result.Threshold)
	for i, item := range result.Items {
		fmt.Fprintf(w, "%-24s %d\n", item, result.Labels[i])
	}
	fmt.Fprintln(w)
}

// WriteSearchHits writes catalog search hits to w in the given format.
func WriteSearchHits(w io.Writer, hits []*catalog.Hit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	default:
		writeSearchHitsText(w, hits)
		return nil
	}
}

func writeSearchHitsText(w io.Writer, hits []*catalog.Hit) {
	fmt.Fprintf(w, "\nFound %d complexes\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(w, "%2d. %s (score %.3f)\n", i+1, h.Name, h.Score)
		if h.Description != "" {
			fmt.Fprintf(w, "    %s\n", h.Description)
		}
		fmt.Fprintf(w, "    genes: %s\n", TruncateWords(strings.Join(h.Genes, " "), 15))
	}
	fmt.Fprintln(w)
}

// PrintRunSummary writes a run summary to stdout.
func PrintRunSummary(run *models.Run, format OutputFormat) error {
	return WriteRunSummary(os.Stdout, run, format)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
