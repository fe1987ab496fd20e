// Package engine supervises the emulator process behind a session. Two
// producers live behind one Launcher contract: the real virtualization
// engine when it is installed and a disk image exists, and a simulated
// boot-transcript producer otherwise. Callers only learn which one they
// got through Handle.Simulated.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// engineCandidates are probed on PATH when no binary is configured.
var engineCandidates = []string{"qemu-system-i386", "qemu-system-x86_64"}

// Spec describes a single emulator launch.
type Spec struct {
	SessionID string
	Browser   string
	MemoryMB  int
	VideoMB   int
	Cores     int
	Display   int    // VNC display slot; the engine listens on 5900+Display
	ImagePath string // empty forces simulated mode
}

// Events receives a launch's lifecycle. Output carries process text with
// stderr lines pre-tagged; Exited fires exactly once, for any exit reason.
type Events interface {
	Output(text string)
	Exited(code int, err error)
}

// Handle controls a launched producer. Terminate requests a graceful stop
// and is a no-op once the producer has exited.
type Handle interface {
	Terminate()
	Simulated() bool
}

type Launcher interface {
	Launch(ctx context.Context, spec Spec, ev Events) (Handle, error)
}

// Locate resolves the engine binary: the configured path if given,
// otherwise the first candidate found on PATH. Empty means no engine on
// this host, which only forces simulated mode and is not an error.
func Locate(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range engineCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// EmulatorLauncher launches the real engine when possible and falls back
// to the simulated producer per-launch.
type EmulatorLauncher struct {
	binary   string
	simDelay time.Duration
	logger   *slog.Logger
}

func NewLauncher(binary string, simDelay time.Duration, logger *slog.Logger) *EmulatorLauncher {
	return &EmulatorLauncher{
		binary:   binary,
		simDelay: simDelay,
		logger:   logger,
	}
}

func (l *EmulatorLauncher) Launch(ctx context.Context, spec Spec, ev Events) (Handle, error) {
	if l.binary == "" || spec.ImagePath == "" {
		l.logger.Info("launching simulated emulator",
			"session_id", spec.SessionID, "browser", spec.Browser, "has_image", spec.ImagePath != "")
		return l.launchSimulated(spec, ev)
	}
	return l.launchEngine(spec, ev)
}

func (l *EmulatorLauncher) launchEngine(spec Spec, ev Events) (Handle, error) {
	h, err := launchProcess(l.binary, buildArgs(spec), ev)
	if err != nil {
		return nil, err
	}
	l.logger.Info("engine started",
		"session_id", spec.SessionID, "browser", spec.Browser, "pid", h.cmd.Process.Pid, "display", spec.Display)
	return h, nil
}

// launchProcess spawns a child, wires both output streams as line events
// (stderr tagged) and reports the exit asynchronously.
func launchProcess(name string, args []string, ev Events) (*processHandle, error) {
	cmd := exec.Command(name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", name, err)
	}

	h := &processHandle{cmd: cmd}

	// Both pipes must be drained before Wait reaps the process, otherwise
	// trailing output is lost.
	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, stdout, "", ev)
	go streamLines(&wg, stderr, "[stderr] ", ev)

	go func() {
		wg.Wait()
		err := cmd.Wait()
		h.markExited()
		ev.Exited(cmd.ProcessState.ExitCode(), err)
	}()

	return h, nil
}

// buildArgs translates the session configuration into engine arguments.
func buildArgs(spec Spec) []string {
	return []string{
		"-m", fmt.Sprintf("%dM", spec.MemoryMB),
		"-smp", strconv.Itoa(spec.Cores),
		"-vga", "std",
		"-global", fmt.Sprintf("VGA.vgamem_mb=%d", spec.VideoMB),
		"-vnc", fmt.Sprintf("127.0.0.1:%d", spec.Display),
		"-usb", "-device", "usb-tablet",
		"-hda", spec.ImagePath,
	}
}

func streamLines(wg *sync.WaitGroup, r io.Reader, tag string, ev Events) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		ev.Output(tag + scanner.Text() + "\n")
	}
}

type processHandle struct {
	cmd    *exec.Cmd
	mu     sync.Mutex
	exited bool
}

func (h *processHandle) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited || h.cmd.Process == nil {
		return
	}
	// Graceful stop; exit is observed asynchronously by the Wait goroutine.
	_ = h.cmd.Process.Signal(syscall.SIGTERM)
}

func (h *processHandle) markExited() {
	h.mu.Lock()
	h.exited = true
	h.mu.Unlock()
}

func (h *processHandle) Simulated() bool { return false }
