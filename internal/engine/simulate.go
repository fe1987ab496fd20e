package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sriail/browser-ig/internal/display"
)

// simVersion is the banner version reported by the simulated producer.
const simVersion = "2.8.1"

func (l *EmulatorLauncher) launchSimulated(spec Spec, ev Events) (Handle, error) {
	h := &simHandle{stop: make(chan struct{})}
	go h.run(spec, ev, l.simDelay)
	return h, nil
}

type simHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *simHandle) Terminate() {
	h.once.Do(func() { close(h.stop) })
}

func (h *simHandle) Simulated() bool { return true }

// run emits the staggered boot transcript, then stays alive until
// Terminate. The transcript is deterministic for a given Spec so tests can
// assert on it.
func (h *simHandle) run(spec Spec, ev Events, delay time.Duration) {
	for _, line := range bootTranscript(spec) {
		select {
		case <-h.stop:
			ev.Output("Emulator shut down before boot completed\n")
			ev.Exited(0, nil)
			return
		case <-time.After(delay):
		}
		ev.Output(line + "\n")
	}

	<-h.stop
	ev.Output("Shutting down emulator\n")
	ev.Exited(0, nil)
}

func bootTranscript(spec Spec) []string {
	lines := []string{
		fmt.Sprintf("QEMU emulator version %s (simulated)", simVersion),
		fmt.Sprintf("Initializing virtual hardware for %s", spec.Browser),
		fmt.Sprintf("Allocated %d MB RAM, %d MB video memory", spec.MemoryMB, spec.VideoMB),
	}
	if spec.ImagePath != "" {
		lines = append(lines, fmt.Sprintf("Loading disk image %s", spec.ImagePath))
	} else {
		lines = append(lines, fmt.Sprintf("No disk image found for %s, booting without media", spec.Browser))
	}
	return append(lines,
		fmt.Sprintf("VNC server running on 127.0.0.1:%d", display.Port(spec.Display)),
		"Boot complete - session ready",
	)
}
