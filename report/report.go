// Package report renders attack outcomes as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/libshade/libshade/attack"
	"github.com/libshade/libshade/perturb"
)

// WriteSummary renders the headline figures of one attack run.
func WriteSummary(w io.Writer, result *attack.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Run", result.RunID},
		{"Library", result.LibraryName},
		{"Evaded", result.Evaded},
		{"Phase", result.Phase.String()},
		{"Iterations", result.TotalIterations},
		{"Accepted", result.SuccessfulIterations},
		{"Success rate", fmt.Sprintf("%.2f", result.SuccessRate())},
		{"Best iteration", result.BestIteration},
		{"Final entropy", fmt.Sprintf("%.4f", result.FinalEntropy)},
		{"Artifact", result.ArtifactPath},
	})
	t.Render()
}

// WriteOperations renders a per-operator tally of the modification log.
func WriteOperations(w io.Writer, records []perturb.Record) {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Operation]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Operation", "Count"})
	for _, name := range names {
		t.AppendRow(table.Row{name, counts[name]})
	}
	t.Render()
}

// WriteIterations renders the per-iteration trace of a run.
func WriteIterations(w io.Writer, result *attack.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Operation", "Kind", "Requested", "Applied", "Accepted", "Confidence"})
	for _, rec := range result.Iterations {
		confidence := "-"
		if rec.Confidence >= 0 {
			confidence = fmt.Sprintf("%.2f", rec.Confidence)
		}
		t.AppendRow(table.Row{
			rec.Index, rec.Operation, rec.NodeKind,
			rec.Requested, rec.Applied, rec.Accepted, confidence,
		})
	}
	t.Render()
}
