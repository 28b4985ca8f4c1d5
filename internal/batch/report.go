package batch

import (
	"fmt"
	"io"
	"strings"
)

const (
	bannerWidth = 50
	bannerTitle = "Turbo Game Engine - PNG Color Reducer"
	bannerDone  = "Done! Images are now compatible with Turbo."
)

// Reporter writes the human-readable batch progress.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a Reporter writing to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

// Writer returns the destination, so the reducer's lines interleave with the
// reporter's.
func (r *Reporter) Writer() io.Writer { return r.w }

func (r *Reporter) rule() {
	fmt.Fprintln(r.w, strings.Repeat("=", bannerWidth))
}

// Start prints the opening banner.
func (r *Reporter) Start() {
	r.rule()
	fmt.Fprintln(r.w, bannerTitle)
	r.rule()
}

// Processing announces a file that exists and is about to be reduced.
func (r *Reporter) Processing(name string) {
	fmt.Fprintf(r.w, "\nProcessing: %s\n", name)
}

// Outcome prints the success, failure or not-found line for res.
func (r *Reporter) Outcome(res Result) {
	switch res.Outcome {
	case OutcomeSuccess:
		fmt.Fprintf(r.w, "✓ Successfully processed %s\n", res.Task.Name)
		if res.Object != "" {
			fmt.Fprintf(r.w, "Uploaded to: %s\n", res.Object)
		}
	case OutcomeNotFound:
		fmt.Fprintf(r.w, "✗ File not found: %s\n", res.Task.Name)
	case OutcomeFailed:
		fmt.Fprintf(r.w, "✗ Error processing %s: %s\n", res.Task.Name, res.Message)
	}
}

// Error prints a run-level error such as a failed folder scan.
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.w, "✗ %v\n", err)
}

// Finish prints the summary line and the closing banner.
func (r *Reporter) Finish(s *Summary) {
	fmt.Fprintf(r.w, "\nSummary: %d succeeded, %d not found, %d failed\n", s.Succeeded, s.NotFound, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(r.w, "Interrupted: %d file(s) not processed\n", s.Skipped)
	}
	fmt.Fprintln(r.w)
	r.rule()
	fmt.Fprintln(r.w, bannerDone)
	r.rule()
}
