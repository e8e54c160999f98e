package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter formats output as aligned plain-text tables without colors,
// suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if r.Operation == OpHistory {
		fmt.Fprintln(tw, "ID\tOPERATION\tTARGET\tSTATUS\tASSETS\tDURATION")
		for _, run := range r.Runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				run.ID, run.Operation, run.Target, runStatus(run.Success), run.Assets, formatDuration(run.Duration))
		}
		return tw.Flush()
	}

	if len(r.Steps) > 0 {
		fmt.Fprintln(tw, "STEP\tSTATUS\tDURATION")
		for _, s := range r.Steps {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Status, formatDuration(s.Duration))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		w.WriteString("\n")
	}

	switch {
	case r.NothingToDo:
		w.WriteString("nothing to import\n")
	case len(r.Assets) > 0:
		fmt.Fprintln(tw, "ID\tSIZE\tSOURCE")
		for _, a := range r.Assets {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.SizeHuman, a.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "imported %d (%s), manifest has %d entries\n",
			len(r.Assets), humanize.IBytes(uint64(r.TotalSize())), r.ManifestEntries)
	}

	if r.Error != "" {
		fmt.Fprintf(w, "error: %s\n", r.Error)
	}
	return nil
}

func runStatus(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
