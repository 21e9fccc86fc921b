package workflow

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evalgate/evalgate/pkg/models"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// newTable builds a left-aligned markdown-style table for terminal output
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row:      tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
	)
}

// writeBaselineTable lists the feature's baselines in creation order,
// numbered the way Select expects answers.
func writeBaselineTable(w io.Writer, ws *models.WorkflowState) {
	fmt.Fprintln(w, "\nAvailable baselines:")
	table := newTable(w, []string{"#", "Baseline ID", "Created", "Inputs", "State"})
	for i, id := range ws.BaselineIDs() {
		rec := ws.Baselines[id]
		_ = table.Append([]string{
			strconv.Itoa(i + 1),
			id,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(rec.NumInputs),
			string(rec.State),
		})
	}
	_ = table.Render()
}

// WriteStatus renders a workflow status summary for the CLI
func WriteStatus(w io.Writer, st *Status) {
	fmt.Fprintf(w, "Feature: %s\n", st.Feature)
	if st.Status != "" {
		fmt.Fprintf(w, "Status: %s\n", st.Status)
		fmt.Fprintf(w, "Next action: %s\n", st.NextAction)
		return
	}

	target := "no"
	if st.TargetExists {
		target = "yes"
		if st.TargetStale {
			target = "yes (stale)"
		}
	}
	selected := st.SelectedBaseline
	if selected == "" {
		selected = "none"
	}

	table := newTable(w, []string{"Field", "Value"})
	_ = table.Append([]string{"Current phase", string(st.CurrentPhase)})
	_ = table.Append([]string{"LLM config state", string(st.LLMConfigState)})
	_ = table.Append([]string{"Baselines", strconv.Itoa(st.NumBaselines)})
	_ = table.Append([]string{"Selected baseline", selected})
	_ = table.Append([]string{"Target dataset", target})
	if !st.LastUpdated.IsZero() {
		_ = table.Append([]string{"Last updated", st.LastUpdated.Format("2006-01-02 15:04:05")})
	}
	_ = table.Render()

	if len(st.BaselineIDs) > 0 {
		fmt.Fprintf(w, "Baseline IDs: %s\n", strings.Join(st.BaselineIDs, ", "))
	}
	fmt.Fprintf(w, "Next action: %s\n", st.NextAction)
}

// writeRecommendation prints the comparison outcome for the operator
func writeRecommendation(w io.Writer, rec models.Recommendation) {
	fmt.Fprintf(w, "\n📊 RECOMMENDATION: %s\n", rec.Decision)
	fmt.Fprintf(w, "   Confidence: %s\n", rec.Confidence)
	for _, reason := range rec.Reasons {
		fmt.Fprintf(w, "   - %s\n", reason)
	}
}
