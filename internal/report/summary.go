package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/policy"
)

const (
	prefix              = "   "
	planSummaryHeader   = "❯❯ Release Plan"
	publishLabel        = "To Publish"
	publishedLabel      = "Published"
	unknownLabel        = "Unknown"
	filteredLabel       = "Filtered"
	excludedLabel       = "Excluded"
	separatorLineLength = 28
	labelColumnWidth    = 16
	columnSpacing       = 2
	undeclaredMark      = "-"
	changedMark         = "*"
	firstChannelColumn  = 3
)

// Summary counts packages by outcome.
type Summary struct {
	Packages  int
	Publish   int
	Published int
	Unknown   int
	Filtered  int
	Excluded  int
}

// Summarize counts the packages of the report. A package with any unknown decision counts as unknown, whatever
// its other channels say.
func (report *WorkspaceReport) Summarize() Summary {
	summary := Summary{Packages: len(report.Packages)}

	for _, pkg := range report.Packages {
		switch {
		case pkg.Excluded:
			summary.Excluded++
		case pkg.Filtered:
			summary.Filtered++
		case hasStatus(pkg, policy.StatusUnknown):
			summary.Unknown++
		case pkg.ShouldPublish:
			summary.Publish++
		case len(pkg.Decisions) > 0:
			summary.Published++
		}
	}

	return summary
}

func hasStatus(pkg PackageEntry, status policy.Status) bool {
	for _, decision := range pkg.Decisions {
		if decision.Status == string(status) {
			return true
		}
	}

	return false
}

// WriteSummary writes the counts followed by a table with one row per package and one column per channel.
func (report *WorkspaceReport) WriteSummary(w io.Writer, colorizer *Colorizer) error {
	if colorizer == nil {
		colorizer = NewColorizer(false)
	}

	summary := report.Summarize()

	header := fmt.Sprintf("%s  %s",
		colorizer.headingColorizer(planSummaryHeader),
		fmt.Sprintf("%d packages", summary.Packages),
	)
	if _, err := fmt.Fprintf(w, "%s\n%s%s\n", header, prefix, strings.Repeat("─", separatorLineLength)); err != nil {
		return err
	}

	entries := []struct {
		colorizer func(string) string
		label     string
		count     int
	}{
		{colorizer: colorizer.publishColorizer, label: publishLabel, count: summary.Publish},
		{colorizer: colorizer.publishedColorizer, label: publishedLabel, count: summary.Published},
		{colorizer: colorizer.unknownColorizer, label: unknownLabel, count: summary.Unknown},
		{colorizer: colorizer.filteredColorizer, label: filteredLabel, count: summary.Filtered},
		{colorizer: colorizer.excludedColorizer, label: excludedLabel, count: summary.Excluded},
	}

	for _, entry := range entries {
		if entry.count == 0 {
			continue
		}

		padding := colorizer.paddingColorizer(strings.Repeat(".", labelColumnWidth-len(entry.label)))

		if _, err := fmt.Fprintf(w, "%s%s%s %s\n", prefix, entry.colorizer(entry.label), padding, strconv.Itoa(entry.count)); err != nil {
			return err
		}
	}

	if len(report.Packages) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	return report.writeTable(w, colorizer)
}

func (report *WorkspaceReport) writeTable(w io.Writer, colorizer *Colorizer) error {
	columns := []string{"Workspace", "Package", "Version"}
	for _, channel := range manifest.AllChannels {
		columns = append(columns, string(channel))
	}

	rows := make([][]string, 0, len(report.Packages))

	for _, pkg := range report.Packages {
		version := pkg.Version
		if version == "" {
			version = pkg.DeclaredVersion
		}

		name := pkg.Name
		if pkg.Changed {
			name += changedMark
		}

		row := []string{pkg.Workspace, name, version}

		for _, channel := range manifest.AllChannels {
			decision, ok := pkg.Decisions[channel]

			switch {
			case ok:
				row = append(row, decision.Status)
			case pkg.Excluded:
				row = append(row, "excluded")
			default:
				row = append(row, undeclaredMark)
			}
		}

		rows = append(rows, row)
	}

	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = len(column)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	if err := writeRow(w, columns, widths, 0, colorizer.headingColorizer); err != nil {
		return err
	}

	for _, row := range rows {
		if err := writeRow(w, row, widths, firstChannelColumn, colorizer.colorStatus); err != nil {
			return err
		}
	}

	return nil
}

// writeRow pads each cell before coloring it so escape codes do not skew the alignment.
func writeRow(w io.Writer, cells []string, widths []int, colorFrom int, color func(string) string) error {
	var line strings.Builder

	line.WriteString(prefix)

	for i, cell := range cells {
		padded := cell
		if i < len(cells)-1 {
			padded += strings.Repeat(" ", widths[i]-len(cell)+columnSpacing)
		}

		if i >= colorFrom {
			line.WriteString(strings.Replace(padded, cell, color(cell), 1))
			continue
		}

		line.WriteString(padded)
	}

	_, err := fmt.Fprintln(w, line.String())

	return err
}
