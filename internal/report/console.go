// Package report renders run reports for people and for downstream tools
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fahim22542/Testing-Projects/internal/filtertest"
)

const (
	// maxExamples caps the successful chains shown in the console summary
	maxExamples = 3
	// maxIssues caps the invalid records listed per failed chain
	maxIssues = 3
	ruleWidth = 60
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
	section lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		label:   r.NewStyle().Foreground(lipgloss.Color("241")),
		pass:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).MarginTop(1),
	}
}

// WriteConsole prints the human readable summary of a run
func WriteConsole(w io.Writer, rep *filtertest.RunReport) error {
	s := newStyles(w)
	var b strings.Builder

	rule := strings.Repeat("=", ruleWidth)
	b.WriteString(rule + "\n")
	b.WriteString(s.title.Render("SUMMARY - ALL FILTERS APPLIED") + "\n")
	b.WriteString(rule + "\n")

	sum := rep.Summary
	line := func(label string, value string) {
		b.WriteString(s.label.Render(fmt.Sprintf("%-44s", label)) + value + "\n")
	}
	line("Run ID:", rep.RunID)
	line("Strategy:", string(rep.Strategy))
	if rep.Exploration != nil {
		line("Chains discovered:", fmt.Sprintf("%d", len(rep.Exploration.Chains)))
	}
	line("Total complete filter combinations tested:", fmt.Sprintf("%d", sum.Total))
	line("Passed tests:", s.pass.Render(fmt.Sprintf("%d", sum.Passed)))
	failed := fmt.Sprintf("%d", sum.Failed)
	if sum.Failed > 0 {
		failed = s.fail.Render(failed)
	}
	line("Failed tests:", failed)
	line("Skipped chains:", fmt.Sprintf("%d", sum.Skipped))
	line("Success rate:", fmt.Sprintf("%.1f%%", sum.SuccessRate))
	if !rep.FinishedAt.IsZero() {
		line("Duration:", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String())
	}

	if rep.Exploration != nil && len(rep.Exploration.Chains) == 0 {
		b.WriteString(s.section.Render("No complete filter chains could be built!") + "\n")
		if rep.Exploration.RootEmpty {
			b.WriteString(s.muted.Render("  the root filter offered no options") + "\n")
		}
	}

	if failedResults := rep.Failed(); len(failedResults) > 0 {
		b.WriteString(s.section.Render("Failed test details:") + "\n")
		for _, res := range failedResults {
			b.WriteString(fmt.Sprintf("  Chain: %s\n", res.Chain))
			b.WriteString(fmt.Sprintf("  Invalid records: %s\n", s.fail.Render(fmt.Sprintf("%d", len(res.Verification.InvalidRecords)))))
			b.WriteString(fmt.Sprintf("  Data count: %d\n", res.DataCount))
			for i, invalid := range res.Verification.InvalidRecords {
				if i == maxIssues {
					b.WriteString(s.muted.Render(fmt.Sprintf("    ... %d more", len(res.Verification.InvalidRecords)-maxIssues)) + "\n")
					break
				}
				b.WriteString(fmt.Sprintf("    - %s: %s\n", invalid.Record.Code, strings.Join(invalid.Issues, "; ")))
			}
			if res.Truncated {
				b.WriteString(s.muted.Render("    pagination stopped at the pass bound, records may be incomplete") + "\n")
			}
		}
	}

	if succeeded := rep.Succeeded(); len(succeeded) > 0 {
		b.WriteString(s.section.Render("Successful test examples:") + "\n")
		for i, res := range succeeded {
			if i == maxExamples {
				break
			}
			b.WriteString(fmt.Sprintf("  Chain: %s\n", res.Chain))
			b.WriteString(fmt.Sprintf("  Records found: %d\n", res.DataCount))
		}
	}

	if len(rep.SkippedChains) > 0 {
		b.WriteString(s.section.Render("Chains that could not be applied:") + "\n")
		for _, chain := range rep.SkippedChains {
			b.WriteString(fmt.Sprintf("  Chain: %s\n", chain))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteChains prints discovered chains, one per line
func WriteChains(w io.Writer, exploration *filtertest.Exploration) error {
	s := newStyles(w)
	var b strings.Builder

	b.WriteString(s.title.Render(fmt.Sprintf("Discovered %d complete filter chains", len(exploration.Chains))) + "\n")
	for i, chain := range exploration.Chains {
		b.WriteString(fmt.Sprintf("%4d. %s\n", i+1, chain))
	}
	b.WriteString(s.muted.Render(fmt.Sprintf("option queries: %d, skipped branches: %d",
		exploration.OptionQueries, exploration.SkippedBranches)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
