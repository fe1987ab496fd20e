package engine

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingEvents collects output and the exit notification.
type recordingEvents struct {
	mu     sync.Mutex
	output strings.Builder
	exited chan exitInfo
}

type exitInfo struct {
	code int
	err  error
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{exited: make(chan exitInfo, 1)}
}

func (r *recordingEvents) Output(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output.WriteString(text)
}

func (r *recordingEvents) Exited(code int, err error) {
	r.exited <- exitInfo{code: code, err: err}
}

func (r *recordingEvents) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output.String()
}

func waitForOutput(t *testing.T, r *recordingEvents, marker string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(r.String(), marker) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q; got:\n%s", marker, r.String())
}

func simSpec() Spec {
	return Spec{
		SessionID: "test-session",
		Browser:   "ie6",
		MemoryMB:  1024,
		VideoMB:   16,
		Cores:     1,
		Display:   2,
	}
}

func TestLaunch_SimulatedWithoutBinary(t *testing.T) {
	l := NewLauncher("", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	h, err := l.Launch(context.Background(), simSpec(), ev)
	require.NoError(t, err)
	assert.True(t, h.Simulated())

	waitForOutput(t, ev, "session ready")

	out := ev.String()
	assert.Contains(t, out, "QEMU emulator version")
	assert.Contains(t, out, "Allocated 1024 MB RAM, 16 MB video memory")
	assert.Contains(t, out, "No disk image found for ie6")
	assert.Contains(t, out, "VNC server running on 127.0.0.1:5902")

	h.Terminate()
	select {
	case exit := <-ev.exited:
		assert.Equal(t, 0, exit.code)
		assert.NoError(t, exit.err)
	case <-time.After(5 * time.Second):
		t.Fatal("simulated producer never exited")
	}
	assert.Contains(t, ev.String(), "Shutting down emulator")
}

func TestLaunch_SimulatedWithoutImage(t *testing.T) {
	// Binary present but no image still downgrades to simulated mode.
	l := NewLauncher("/usr/bin/qemu-system-i386", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	h, err := l.Launch(context.Background(), simSpec(), ev)
	require.NoError(t, err)
	assert.True(t, h.Simulated())
	h.Terminate()
	<-ev.exited
}

func TestLaunch_SimulatedMentionsImage(t *testing.T) {
	l := NewLauncher("", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	spec := simSpec()
	spec.ImagePath = "/images/ie6.qcow2"
	h, err := l.Launch(context.Background(), spec, ev)
	require.NoError(t, err)

	waitForOutput(t, ev, "session ready")
	assert.Contains(t, ev.String(), "Loading disk image /images/ie6.qcow2")
	h.Terminate()
	<-ev.exited
}

func TestLaunch_TerminateIdempotent(t *testing.T) {
	l := NewLauncher("", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	h, err := l.Launch(context.Background(), simSpec(), ev)
	require.NoError(t, err)

	h.Terminate()
	h.Terminate()
	h.Terminate()

	select {
	case <-ev.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a single exit notification")
	}
}

func TestLaunch_EngineProcess(t *testing.T) {
	// A stand-in binary exercises the real spawn path: it echoes the built
	// argument list to stdout and exits 0.
	l := NewLauncher("/bin/echo", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	spec := simSpec()
	spec.ImagePath = "/images/ie6.qcow2"

	h, err := l.Launch(context.Background(), spec, ev)
	require.NoError(t, err)
	assert.False(t, h.Simulated())

	select {
	case exit := <-ev.exited:
		assert.Equal(t, 0, exit.code)
	case <-time.After(5 * time.Second):
		t.Fatal("process never exited")
	}

	out := ev.String()
	assert.Contains(t, out, "-m 1024M")
	assert.Contains(t, out, "-vnc 127.0.0.1:2")
	assert.Contains(t, out, "-hda /images/ie6.qcow2")

	// Terminate after exit must be a no-op.
	h.Terminate()
}

func TestLaunch_EngineStderrTagged(t *testing.T) {
	ev := newRecordingEvents()

	_, err := launchProcess("/bin/sh", []string{"-c", `echo booting; echo "disk warning" >&2`}, ev)
	require.NoError(t, err)

	select {
	case <-ev.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("script never exited")
	}

	out := ev.String()
	assert.Contains(t, out, "booting\n")
	assert.Contains(t, out, "[stderr] disk warning\n")
}

func TestLaunch_SpawnFailure(t *testing.T) {
	l := NewLauncher("/nonexistent/qemu-system-i386", time.Millisecond, testLogger())
	ev := newRecordingEvents()

	spec := simSpec()
	spec.ImagePath = "/images/ie6.qcow2"

	_, err := l.Launch(context.Background(), spec, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start engine")
}

func TestLaunch_NonZeroExit(t *testing.T) {
	ev := newRecordingEvents()

	_, err := launchProcess("/bin/sh", []string{"-c", "exit 3"}, ev)
	require.NoError(t, err)

	select {
	case exit := <-ev.exited:
		assert.Equal(t, 3, exit.code)
		assert.Error(t, exit.err)
	case <-time.After(5 * time.Second):
		t.Fatal("script never exited")
	}
}

func TestLocate_ConfiguredWins(t *testing.T) {
	assert.Equal(t, "/opt/qemu/bin/qemu-system-i386", Locate("/opt/qemu/bin/qemu-system-i386"))
}

func TestLocate_AbsentIsEmpty(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	assert.Equal(t, "", Locate(""))
}
