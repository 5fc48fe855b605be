package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/taxdesk/portal-client/internal/models"
)

type recorder struct {
	calls []string
}

func (r *recorder) Start(total int64, description string) {
	r.calls = append(r.calls, "start:"+description)
}
func (r *recorder) Update(current int64) { r.calls = append(r.calls, "update") }
func (r *recorder) Finish() { r.calls = append(r.calls, "finish") }
func (r *recorder) Error(err error) { r.calls = append(r.calls, "error:"+err.Error()) }
func (r *recorder) SetDescription(d string) { r.calls = append(r.calls, "desc:"+d) }

func TestPollTrackerDrivesReporter(t *testing.T) {
	rec := &recorder{}
	tracker := NewPollTracker(rec, "w2.pdf")

	tracker.OnAttempt(1, 5, models.AssignmentProcessing, nil)
	tracker.OnAttempt(2, 5, "", errors.New("timeout"))
	tracker.OnAttempt(3, 5, models.AssignmentCompleted, nil)
	tracker.Done(nil)

	want := []string{
		"start:Waiting for w2.pdf",
		"desc:w2.pdf: processing",
		"update",
		"desc:w2.pdf: retrying status (2/5)",
		"update",
		"desc:w2.pdf: completed",
		"update",
		"finish",
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("reporter calls mismatch (-want +got):\n%s", diff)
	}
}

func TestPollTrackerDoneWithoutAttempts(t *testing.T) {
	rec := &recorder{}
	NewPollTracker(rec, "a.pdf").Done(errors.New("rejected"))
	if len(rec.calls) != 0 {
		t.Errorf("expected no reporter calls, got %v", rec.calls)
	}
}

func TestPollTrackerReportsError(t *testing.T) {
	rec := &recorder{}
	tracker := NewPollTracker(rec, "a.pdf")
	tracker.OnAttempt(1, 2, models.AssignmentProcessing, nil)
	tracker.Done(errors.New("still processing"))

	if last := rec.calls[len(rec.calls)-1]; last != "error:still processing" {
		t.Errorf("last call = %q", last)
	}
}

func TestCLIProgressWritesDescription(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgressTo(&buf)
	p.Start(3, "Loading library")
	p.Update(3)
	p.Finish()

	if !strings.Contains(buf.String(), "Loading library") {
		t.Errorf("output %q does not contain the description", buf.String())
	}
}

func TestForTerminalQuiet(t *testing.T) {
	if _, ok := ForTerminal(true).(*NoOpProgress); !ok {
		t.Error("quiet mode should not draw a bar")
	}
}
