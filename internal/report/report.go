// Package report renders an analysis outcome as a publication-style summary
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"scifig/domain/analysis"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Stars returns the conventional significance marker for a p-value
func Stars(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return "ns"
	}
}

// FormatP renders a p-value APA-style, without the leading zero
func FormatP(p float64) string {
	if p < 0.001 {
		return "p < .001"
	}
	return "p = " + strings.TrimPrefix(fmt.Sprintf("%.3f", p), "0")
}

// Markdown renders the outcome as a Markdown document
func Markdown(o analysis.AnalysisOutcome) string {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Analysis %s\n\n", o.ID)
	fmt.Fprintf(&b, "Status: **%s**  \nCreated: %s\n\n", o.Status, o.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	if o.Status == analysis.StatusFailed {
		fmt.Fprintf(&b, "> Analysis failed (%s): %s\n\n", o.ErrorCode, esc(o.Error))
	}

	if p := o.DataProfile; p != nil {
		b.WriteString("## Data\n\n")
		fmt.Fprintf(&b, "- Observations: %d\n", p.SampleSize)
		fmt.Fprintf(&b, "- Outcome: %s (%s)\n", code(p.OutcomeVariable), p.OutcomeType)
		if p.GroupVariable != "" {
			fmt.Fprintf(&b, "- Groups: %s (%d levels: %s)\n", code(p.GroupVariable), p.NGroups, esc(strings.Join(p.GroupLabels, ", ")))
		}
		if p.HasSurvival() {
			fmt.Fprintf(&b, "- Time-to-event: %s / %s\n", code(p.TimeVariable), code(p.EventVariable))
		}
		b.WriteString("\n")
	}

	if r := o.Recommendation; r != nil {
		b.WriteString("## Test selection\n\n")
		fmt.Fprintf(&b, "Recommended: **%s** (confidence %.0f%%). %s.\n\n", r.Primary.DisplayName(), r.Confidence*100, esc(r.Reasoning))
		for _, alt := range r.Alternatives {
			fmt.Fprintf(&b, "- Alternative: %s (%.0f%%) - %s\n", alt.Test.DisplayName(), alt.Confidence*100, esc(alt.Reason))
		}
		if len(r.Alternatives) > 0 {
			b.WriteString("\n")
		}
	}

	if len(o.AssumptionsChecked) > 0 {
		writeAssumptions(&b, o.AssumptionsChecked)
	}

	if res := o.FinalResult; res != nil {
		writeResult(&b, res)
	}

	return b.String()
}

// HTML renders the outcome as a standalone HTML page
func HTML(o analysis.AnalysisOutcome) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
		Title: fmt.Sprintf("Analysis %s", o.ID),
	})
	return markdown.ToHTML([]byte(Markdown(o)), p, renderer)
}

func writeAssumptions(b *bytes.Buffer, checks analysis.Assumptions) {
	b.WriteString("## Assumption checks\n\n")
	b.WriteString("| Check | Test | Statistic | p | Result |\n")
	b.WriteString("|---|---|---|---|---|\n")

	keys := make([]string, 0, len(checks))
	for k := range checks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		c := checks[k]
		result := "passed"
		if !c.Passed {
			result = "not met"
			if c.Reason != "" {
				result += ": " + esc(c.Reason)
			}
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", esc(k), esc(c.Test), optional(c.Statistic, "%.4f"), optional(c.PValue, "%.4f"), result)
	}
	b.WriteString("\n")
}

func writeResult(b *bytes.Buffer, res *analysis.StatisticalResult) {
	fmt.Fprintf(b, "## %s\n\n", esc(res.TestName))
	if res.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", esc(res.Summary))
	}

	if res.PValue != nil {
		fmt.Fprintf(b, "- Significance: %s %s (%s)\n", FormatP(*res.PValue), Stars(*res.PValue), esc(res.Interpretation))
	} else if res.Interpretation != "" {
		fmt.Fprintf(b, "- %s\n", esc(res.Interpretation))
	}
	if es := res.EffectSize; es != nil {
		line := fmt.Sprintf("- Effect size: %s = %.3f", es.Name, es.Value)
		if es.Interpretation != "" {
			line += " (" + es.Interpretation + ")"
		}
		b.WriteString(line + "\n")
	}
	if ci := res.ConfidenceInterval; ci != nil {
		fmt.Fprintf(b, "- %.0f%% CI: [%.3f, %.3f]\n", ci.Level*100, ci.Low, ci.High)
	}
	b.WriteString("\n")

	if len(res.GroupOrder) > 0 && res.Survival == nil {
		b.WriteString("| Group | N | Mean | SD | Median | IQR |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, label := range res.GroupOrder {
			g := res.Groups[label]
			fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s |\n", esc(label), g.N,
				optional(g.Mean, "%.3f"), optional(g.Std, "%.3f"), optional(g.Median, "%.3f"), optional(g.IQR, "%.3f"))
		}
		b.WriteString("\n")
	}

	if s := res.Survival; s != nil {
		b.WriteString("| Group | N | Events | Censored | Median survival |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, label := range s.GroupOrder {
			g := s.Groups[label]
			median := "not reached"
			if g.MedianSurvival != nil {
				median = fmt.Sprintf("%.2f", *g.MedianSurvival)
			}
			fmt.Fprintf(b, "| %s | %d | %d | %d | %s |\n", esc(label), g.N, g.Events, g.Censored, median)
		}
		fmt.Fprintf(b, "\nEvent coding: %s; event rate %.1f%%.\n\n", s.Encoding, s.Validation.EventRate*100)
		if s.EncodingAmbiguous {
			b.WriteString("> Some event values could not be interpreted and were read as censored.\n\n")
		}
	}

	if len(res.ContingencyTable) > 0 {
		cols := make([]string, len(res.ColumnLabels))
		for i, c := range res.ColumnLabels {
			cols[i] = esc(c)
		}
		b.WriteString("| | " + strings.Join(cols, " | ") + " |\n")
		b.WriteString("|---|" + strings.Repeat("---|", len(res.ColumnLabels)) + "\n")
		for i, row := range res.ContingencyTable {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprintf("%d", v)
			}
			fmt.Fprintf(b, "| %s | %s |\n", esc(res.RowLabels[i]), strings.Join(cells, " | "))
		}
		b.WriteString("\n")
	}

	if len(res.Warnings) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(b, "- %s\n", esc(w))
		}
		b.WriteString("\n")
	}
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// markdownEscaper backslash-escapes the characters that would let a data
// label open markup, raw HTML or a new table cell
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
	"<", "\\<",
	">", "\\>",
	"|", "\\|",
	"#", "\\#",
	"\r", " ",
	"\n", " ",
)

// esc makes user-supplied text safe to interpolate into the report
func esc(s string) string {
	return markdownEscaper.Replace(s)
}

// code renders a column name as inline code; backticks cannot be escaped
// inside a code span so they are swapped for quotes
func code(s string) string {
	s = strings.NewReplacer("`", "'", "\r", " ", "\n", " ").Replace(s)
	return "`" + s + "`"
}
