// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI reports
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// PrintActor outputs a one-box summary of an actor.
func (p *Printer) PrintActor(a *types.Actor) {
	if a == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", a.ID))
	sb.WriteString(fmt.Sprintf("Name:     %s\n", a.Name))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", a.Email))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", a.Role))
	if a.Status != types.StatusNone {
		sb.WriteString(fmt.Sprintf("Status:   %s\n", a.Status))
	}
	if len(a.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills:   %s\n", strings.Join(a.Skills, ", ")))
	}

	p.printBox("ACTOR", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuestions outputs an ordered question list and where it came from.
func (p *Printer) PrintQuestions(questions []types.Question, source string) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d questions (source: %s)\n\n", len(questions), source))
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, q.Text))
		if q.Category != "" || q.Difficulty != "" {
			sb.WriteString(fmt.Sprintf("   [%s / %s]\n", q.Category, q.Difficulty))
		}
	}

	p.printBox("INTERVIEW QUESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintInterviewReport outputs an interview with per-question scores and the
// overall evaluation, if any.
func (p *Printer) PrintInterviewReport(iv *types.Interview) {
	if iv == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Interview: %s\n", iv.ID))
	sb.WriteString(fmt.Sprintf("Job:       %s\n", iv.JobTitle))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", iv.Status))
	sb.WriteString(fmt.Sprintf("Questions: %d (%s), answered %d\n", len(iv.Questions), iv.QuestionSource, len(iv.Responses)))
	sb.WriteString("\n")

	for i, q := range iv.Questions {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, q.Text))
		resp, ok := iv.Responses[q.ID]
		if !ok {
			sb.WriteString("    (not answered)\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("    manual %s  ai %s\n", score(resp.ManualScore), score(resp.AIScore)))
		if resp.ManualFeedback != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", resp.ManualFeedback))
		} else if resp.AIFeedback != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", resp.AIFeedback))
		}
	}

	if ev := iv.Evaluation; ev != nil {
		sb.WriteString(fmt.Sprintf("\nOverall:   %.2f / 5\n", ev.OverallScore))
		if ev.OverallFeedback != "" {
			sb.WriteString(fmt.Sprintf("Feedback:  %s\n", ev.OverallFeedback))
		}
	}

	p.printBox("INTERVIEW REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs the admin dashboard counts.
func (p *Printer) PrintStats(s *types.Stats) {
	if s == nil {
		return
	}

	var sb strings.Builder
	writeCounts(&sb, "Actors", s.ActorsByRole)
	writeCounts(&sb, "HR", s.HRByStatus)
	writeCounts(&sb, "Candidates", s.CandidatesByStatus)
	writeCounts(&sb, "Interviews", s.InterviewsByStatus)
	sb.WriteString(fmt.Sprintf("Pending requests: %d", s.PendingRequests))

	p.printBox("PIPELINE STATS", sb.String())
}

func writeCounts[K ~string](sb *strings.Builder, title string, counts map[K]int) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	keys := slices.Sorted(maps.Keys(counts))
	for i, k := range keys {
		if i == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(keys)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  • %-24s %d\n", k, counts[k]))
	}
	sb.WriteString("\n")
}
