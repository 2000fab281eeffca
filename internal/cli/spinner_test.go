package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// captureOutput redirects stdout and stderr for the duration of the test.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return out, errOut
}

func TestSpinnerStop(t *testing.T) {
	_, errOut := captureOutput(t)

	s := newSpinner("Publishing...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(errOut.String(), "Publishing...") {
		t.Errorf("spinner never drew its message: %q", errOut.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	_, errOut := captureOutput(t)

	s := newSpinner("Waiting...")
	s.Start()
	s.SetMessage("Waiting for approval (3s)")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(errOut.String(), "Waiting for approval (3s)") {
		t.Errorf("updated message not drawn: %q", errOut.String())
	}
}

func TestSpinnerWithContext(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
	if !s.Cancelled() {
		t.Error("Stop after cancellation should not clear Cancelled")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	captureOutput(t)
	s := newSpinner("Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithResult(t *testing.T) {
	out, errOut := captureOutput(t)

	s := newSpinner("Testing success...")
	s.Start()
	s.StopWithSuccess("Done!")
	if !strings.Contains(out.String(), "Done!") {
		t.Errorf("success line missing from stdout: %q", out.String())
	}

	s = newSpinner("Testing error...")
	s.Start()
	s.StopWithError("Failed!")
	if !strings.Contains(errOut.String(), "Failed!") {
		t.Errorf("error line missing from stderr: %q", errOut.String())
	}
}
