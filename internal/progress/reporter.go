package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during long-running batch work such
// as seeding the species catalogue.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set. task names the work
// in both outputs (e.g. "Seeding species").
func NewReporter(task string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Task: task, Out: os.Stderr}
	}
	return &TerminalReporter{Task: task}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	Task string
	bar  *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(r.Task),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(fmt.Sprintf("%s: %s", r.Task, message))
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	Task  string
	Out   io.Writer
	total int
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.out(), "%s: %d steps\n", r.Task, total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.out(), "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintf(r.out(), "%s: complete\n", r.Task)
}

func (r *CIReporter) out() io.Writer {
	if r.Out == nil {
		return os.Stderr
	}
	return r.Out
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int) {}
func (Nop) Update(int, string) {}
func (Nop) Finish() {}
