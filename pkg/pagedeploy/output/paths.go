package output

import (
	"bytes"
)

// PathsFormatter writes the path of each imported file, one per line, for
// piping to other tools. History output lists entry IDs instead.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.Operation == OpHistory {
		for _, run := range r.Runs {
			w.WriteString(run.ID)
			w.WriteByte('\n')
		}
		return nil
	}
	for _, a := range r.Assets {
		w.WriteString(a.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)
