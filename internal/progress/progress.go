// Package progress provides progress reporting for long-running portal
// operations: the recursive library load and e-sign status polling.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/taxdesk/portal-client/internal/models"
)

// Reporter is the interface for reporting progress.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements progress reporting for CLI mode using progress bars.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a CLI progress reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return NewCLIProgressTo(os.Stderr)
}

// NewCLIProgressTo creates a CLI progress reporter writing to out.
func NewCLIProgressTo(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out}
}

// Start initializes the bar. A negative total shows a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64) {}
func (p *NoOpProgress) Finish() {}
func (p *NoOpProgress) Error(err error) {}
func (p *NoOpProgress) SetDescription(desc string) {}

// ForTerminal returns a CLIProgress when stderr is a terminal and quiet is
// false, otherwise a NoOpProgress.
func ForTerminal(quiet bool) Reporter {
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return NewNoOpProgress()
	}
	return NewCLIProgress()
}

// PollTracker adapts a Reporter to e-sign status polling. Each status query
// advances the bar by one attempt out of the polling budget.
type PollTracker struct {
	reporter Reporter
	label    string

	mu      sync.Mutex
	started bool
}

// NewPollTracker creates a tracker for the assignment of the named document.
func NewPollTracker(reporter Reporter, documentName string) *PollTracker {
	if reporter == nil {
		reporter = NewNoOpProgress()
	}
	return &PollTracker{reporter: reporter, label: documentName}
}

// OnAttempt matches the coordinator's per-attempt hook.
func (t *PollTracker) OnAttempt(attempt, maxAttempts int, state models.AssignmentState, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.reporter.Start(int64(maxAttempts), "Waiting for "+t.label)
		t.started = true
	}
	switch {
	case err != nil:
		t.reporter.SetDescription(fmt.Sprintf("%s: retrying status (%d/%d)", t.label, attempt, maxAttempts))
	case state != "":
		t.reporter.SetDescription(fmt.Sprintf("%s: %s", t.label, state))
	}
	t.reporter.Update(int64(attempt))
}

// Done finishes the bar if polling started.
func (t *PollTracker) Done(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	if err != nil {
		t.reporter.Error(err)
		return
	}
	t.reporter.Finish()
}
