package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Operation == OpHistory {
		w.WriteString(f.formatRuns(r.Runs))
		return nil
	}

	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if len(r.Steps) > 0 {
		w.WriteString(f.formatSteps(r.Steps))
	}
	if len(r.Assets) > 0 || r.NothingToDo || r.Operation == OpImport {
		if len(r.Steps) > 0 {
			w.WriteString("\n")
		}
		w.WriteString(f.formatAssets(r))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if r.Error != "" {
		w.WriteString(ErrorBox.Render(ErrorStyle.Bold(true).Render("Error: ") + r.Error))
		w.WriteString("\n")
	}
	return nil
}

// formatHeader builds the header box with the operation and target.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	title := TitleStyle.Render(capitalize(r.Operation))
	lines = append(lines, fmt.Sprintf("%s %s", title, ValueStyle.Render(r.Target)))

	var info []string
	if !r.Started.IsZero() {
		info = append(info, LabelStyle.Render("Started:")+" "+ValueStyle.Render(r.Started.Local().Format("2006-01-02 15:04:05")))
	}
	if r.Duration > 0 {
		info = append(info, LabelStyle.Render("Elapsed:")+" "+ValueStyle.Render(formatDuration(r.Duration)))
	}
	if r.Success {
		info = append(info, SuccessStyle.Render("succeeded"))
	} else {
		info = append(info, ErrorStyle.Bold(true).Render("failed"))
	}
	lines = append(lines, strings.Join(info, "  "))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatSteps builds the step table.
func (f *PrettyFormatter) formatSteps(steps []StepInfo) string {
	var sb strings.Builder

	nameWidth := 8
	for _, s := range steps {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
	}

	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("STEP", nameWidth)),
		TableHeaderStyle.Render(padRight("STATUS", 7)),
		TableHeaderStyle.Render("TIME")))

	for _, s := range steps {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			ValueStyle.Render(padRight(s.Name, nameWidth)),
			statusStyle(s.Status).Render(padRight(s.Status, 7)),
			MutedStyle.Render(formatDuration(s.Duration))))
	}
	return sb.String()
}

// formatAssets builds the table of imported files.
func (f *PrettyFormatter) formatAssets(r *Result) string {
	if len(r.Assets) == 0 {
		return MutedStyle.Render("  No new images to import") + "\n"
	}

	var sb strings.Builder

	idWidth, sizeWidth := 4, 8
	for _, a := range r.Assets {
		if len(a.ID) > idWidth {
			idWidth = len(a.ID)
		}
		if len(a.SizeHuman) > sizeWidth {
			sizeWidth = len(a.SizeHuman)
		}
	}

	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("ID", idWidth)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)),
		TableHeaderStyle.Render("SOURCE")))

	for _, a := range r.Assets {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			ValueStyle.Render(padRight(a.ID, idWidth)),
			SizeStyle.Render(padLeft(a.SizeHuman, sizeWidth)),
			PathStyle.Render(a.Source)))
	}
	return sb.String()
}

// formatFooter builds the summary box.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	if r.Operation == OpImport || len(r.Assets) > 0 || r.NothingToDo {
		parts = append(parts,
			LabelStyle.Render("Imported:")+" "+ValueStyle.Render(fmt.Sprintf("%d", len(r.Assets))),
			LabelStyle.Render("Total:")+" "+SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize()))),
			LabelStyle.Render("Manifest:")+" "+ValueStyle.Render(fmt.Sprintf("%d entries", r.ManifestEntries)))
	}
	if len(r.Steps) > 0 {
		done := 0
		for _, s := range r.Steps {
			if s.Status == "ok" {
				done++
			}
		}
		parts = append(parts, LabelStyle.Render("Steps:")+" "+ValueStyle.Render(fmt.Sprintf("%d/%d ok", done, len(r.Steps))))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatRuns builds the history table.
func (f *PrettyFormatter) formatRuns(runs []RunInfo) string {
	if len(runs) == 0 {
		return MutedStyle.Render("No history entries found.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Run history"))
	sb.WriteString("\n\n")

	idWidth, targetWidth := 2, 6
	for _, run := range runs {
		if len(run.ID) > idWidth {
			idWidth = len(run.ID)
		}
		if len(run.Target) > targetWidth {
			targetWidth = len(run.Target)
		}
	}

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("ID", idWidth)),
		TableHeaderStyle.Render(padRight("TARGET", targetWidth)),
		TableHeaderStyle.Render(padRight("STATUS", 6)),
		TableHeaderStyle.Render(padLeft("ASSETS", 6)),
		TableHeaderStyle.Render("WHEN")))

	for _, run := range runs {
		status := runStatus(run.Success)
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(padRight(run.ID, idWidth)),
			PathStyle.Render(padRight(run.Target, targetWidth)),
			statusStyle(status).Render(padRight(status, 6)),
			ValueStyle.Render(padLeft(fmt.Sprintf("%d", run.Assets), 6)),
			MutedStyle.Render(humanize.Time(run.Timestamp))))
	}

	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
