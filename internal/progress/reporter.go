package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress of a file-by-file import. Skip is called for
// every entry that was rejected, so problems show up while the import runs.
type Reporter interface {
	Start(files int)
	Update(current int, file string)
	Skip(file, reason string)
	Finish()
}

// NewReporter returns a line-oriented reporter under CI and a progress bar
// on stderr otherwise.
func NewReporter(description string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return NewCIReporter(description, os.Stderr)
	}
	return &TerminalReporter{description: description, out: os.Stderr}
}

// TerminalReporter draws a progress bar and counts skipped entries in its
// description.
type TerminalReporter struct {
	description string
	out         io.Writer
	bar         *progressbar.ProgressBar
	file        string
	skipped     int
}

func (r *TerminalReporter) Start(files int) {
	r.bar = progressbar.NewOptions(files,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(r.description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, file string) {
	if r.bar == nil {
		return
	}
	r.file = file
	r.describe()
	_ = r.bar.Set(current)
}

func (r *TerminalReporter) Skip(file, reason string) {
	r.skipped++
	if r.bar != nil {
		r.describe()
	}
}

func (r *TerminalReporter) describe() {
	desc := fmt.Sprintf("%s %s", r.description, r.file)
	if r.skipped > 0 {
		desc += fmt.Sprintf(" (%d skipped)", r.skipped)
	}
	r.bar.Describe(desc)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints one line per file and per skipped entry.
type CIReporter struct {
	description string
	out         io.Writer
	files       int
}

// NewCIReporter returns a line-oriented reporter writing to w.
func NewCIReporter(description string, w io.Writer) *CIReporter {
	return &CIReporter{description: description, out: w}
}

func (r *CIReporter) Start(files int) {
	r.files = files
	fmt.Fprintf(r.out, "%s: %d files\n", r.description, files)
}

func (r *CIReporter) Update(current int, file string) {
	fmt.Fprintf(r.out, "[%d/%d] %s\n", current, r.files, file)
}

func (r *CIReporter) Skip(file, reason string) {
	fmt.Fprintf(r.out, "  skipped in %s: %s\n", file, reason)
}

func (r *CIReporter) Finish() {
	fmt.Fprintf(r.out, "%s: done\n", r.description)
}

// Discard reports nothing.
type Discard struct{}

func (Discard) Start(int)           {}
func (Discard) Update(int, string)  {}
func (Discard) Skip(string, string) {}
func (Discard) Finish()             {}
