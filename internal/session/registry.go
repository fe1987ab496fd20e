// Package session owns the authoritative table of live sessions and
// orchestrates slot allocation, emulator launch, output capture, and
// grace-period eviction.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sriail/browser-ig/internal/config"
	"github.com/sriail/browser-ig/internal/engine"
	"github.com/sriail/browser-ig/internal/store"
)

type CreateOpts struct {
	Browser string
	RAM     string // "1".."12" (GB) or "unlimited"
	VRAM    int    // MB, from the configured set
}

type ConfigSummary struct {
	Browser string `json:"browser"`
	RAMMB   int    `json:"ramMB"`
	VRAMMB  int    `json:"vramMB"`
}

type CreateResult struct {
	SessionID     string `json:"sessionId"`
	InitialOutput string `json:"initialOutput"`
	DisplayPort   int    `json:"displayPort"`
	Simulated     bool   `json:"simulated"`
}

type Status struct {
	Running       bool          `json:"running"`
	NewOutput     string        `json:"newOutput"`
	Config        ConfigSummary `json:"config"`
	UptimeSeconds int           `json:"uptimeSeconds"`
	DisplayPort   int           `json:"displayPort"`
	Simulated     bool          `json:"simulated"`
}

type Summary struct {
	ID            string        `json:"sessionId"`
	Config        ConfigSummary `json:"config"`
	Running       bool          `json:"running"`
	Simulated     bool          `json:"simulated"`
	UptimeSeconds int           `json:"uptimeSeconds"`
	Display       int           `json:"display"`
	DisplayPort   int           `json:"displayPort"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type Registry struct {
	cfg      *config.Config
	slots    SlotAllocator
	launcher engine.Launcher
	images   ImageProvider
	history  HistoryStore
	logger   *slog.Logger

	bufBytes int
	grace    time.Duration
	settle   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg *config.Config, slots SlotAllocator, launcher engine.Launcher, images ImageProvider, history HistoryStore, logger *slog.Logger) (*Registry, error) {
	bufBytes, err := cfg.OutputBufferBytes()
	if err != nil {
		return nil, err
	}
	return &Registry{
		cfg:      cfg,
		slots:    slots,
		launcher: launcher,
		images:   images,
		history:  history,
		logger:   logger,
		bufBytes: bufBytes,
		grace:    time.Duration(cfg.GracePeriodSeconds) * time.Second,
		settle:   time.Duration(cfg.SettleMs) * time.Millisecond,
		sessions: make(map[string]*Session),
	}, nil
}

// Create orchestrates one session: validate, reserve a display slot, look
// up the disk image, launch, and register. Validation failures touch no
// resources; slot exhaustion fails before any spawn.
func (r *Registry) Create(ctx context.Context, opts CreateOpts) (*CreateResult, error) {
	if !r.cfg.BrowserAllowed(opts.Browser) {
		return nil, fmt.Errorf("%w: unknown browser %q", ErrInvalidConfig, opts.Browser)
	}
	if !r.cfg.VRAMAllowed(opts.VRAM) {
		return nil, fmt.Errorf("%w: vram %d MB not in %v", ErrInvalidConfig, opts.VRAM, r.cfg.VRAMChoices())
	}
	ramMB, err := r.cfg.ResolveRAM(opts.RAM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	slot, err := r.slots.Acquire()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()[:12]
	imagePath := r.images.Lookup(opts.Browser)

	sess := newSession(id, opts.Browser, ramMB, opts.VRAM, slot, imagePath, r.bufBytes)
	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	handle, err := r.launcher.Launch(ctx, engine.Spec{
		SessionID: id,
		Browser:   opts.Browser,
		MemoryMB:  ramMB,
		VideoMB:   opts.VRAM,
		Cores:     r.cfg.Cores,
		Display:   slot,
		ImagePath: imagePath,
	}, &sessionEvents{registry: r, sess: sess})
	if err != nil {
		// The session stays registered so status queries resolve, but it is
		// immediately stopped with the failure recorded in its output.
		sess.buf.Append(fmt.Sprintf("Failed to start emulator: %v\n", err))
		sess.markStopped()
		r.slots.Release(slot)
		r.recordCreate(sess, false, "spawn_failed")
		_ = r.history.MarkStopped(id, "spawn_failed", nil)
		r.scheduleRemoval(sess)
		r.logger.Error("emulator spawn failed", "session_id", id, "browser", opts.Browser, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	sess.markRunning(handle)
	r.recordCreate(sess, handle.Simulated(), "running")
	r.logger.Info("session created",
		"session_id", id, "browser", opts.Browser, "display", slot,
		"port", sess.port(), "simulated", handle.Simulated())

	// Give the emulator a moment to produce its first output so the create
	// response is not empty.
	time.Sleep(r.settle)

	return &CreateResult{
		SessionID:     id,
		InitialOutput: sess.buf.ReadNew(),
		DisplayPort:   sess.port(),
		Simulated:     handle.Simulated(),
	}, nil
}

// Status returns the session's current state and drains new output since
// the previous poll. The read is destructive: polling twice in a row with
// no new output yields an empty string the second time.
func (r *Registry) Status(id string) (*Status, error) {
	sess := r.lookup(id)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &Status{
		Running:       sess.running(),
		NewOutput:     sess.buf.ReadNew(),
		Config:        sess.configSummary(),
		UptimeSeconds: int(time.Since(sess.createdAt).Seconds()),
		DisplayPort:   sess.port(),
		Simulated:     sess.isSimulated(),
	}, nil
}

// Stop requests termination. Best-effort: success means the stop was
// issued; the running flag flips only when the exit event fires. Stopping
// an already-exited session is a no-op.
func (r *Registry) Stop(id string) error {
	sess := r.lookup(id)
	if sess == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess.terminate()
	r.logger.Info("session stop requested", "session_id", id)
	return nil
}

// List returns a snapshot of all sessions, without consuming any output
// cursors.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Summary, len(sessions))
	for i, s := range sessions {
		out[i] = s.summary()
	}
	return out
}

// Endpoint returns the local VNC address for a running session. Both the
// existence and the running check happen here so the relay never dials a
// slot that a newer session may have inherited.
func (r *Registry) Endpoint(id string) (string, error) {
	sess := r.lookup(id)
	if sess == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !sess.running() {
		return "", fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	return fmt.Sprintf("127.0.0.1:%d", sess.port()), nil
}

// Active returns the number of sessions currently registered.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StopAll terminates every live session; used on shutdown.
func (r *Registry) StopAll() {
	for _, s := range r.List() {
		_ = r.Stop(s.ID)
	}
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// scheduleRemoval evicts the session a grace period after it stopped, so
// in-flight status polls can still collect trailing output.
func (r *Registry) scheduleRemoval(sess *Session) {
	time.AfterFunc(r.grace, func() {
		r.mu.Lock()
		delete(r.sessions, sess.id)
		r.mu.Unlock()
		r.logger.Info("session removed", "session_id", sess.id)
	})
}

func (r *Registry) recordCreate(sess *Session, simulated bool, status string) {
	err := r.history.Add(&store.Record{
		ID:        sess.id,
		Browser:   sess.browser,
		RAMMB:     sess.ramMB,
		VRAMMB:    sess.vramMB,
		Display:   sess.slot,
		Port:      sess.port(),
		Simulated: simulated,
		Status:    status,
		CreatedAt: sess.createdAt,
	})
	if err != nil {
		r.logger.Error("record session history", "session_id", sess.id, "error", err)
	}
}

// sessionEvents wires one launch's process events into its session. Output
// ordering follows arrival order across both streams.
type sessionEvents struct {
	registry *Registry
	sess     *Session
}

func (e *sessionEvents) Output(text string) {
	e.sess.buf.Append(text)
}

func (e *sessionEvents) Exited(code int, err error) {
	e.registry.onExit(e.sess, code, err)
}

// onExit records the terminal status, frees the display slot, and starts
// the grace-period eviction clock. The engine fires the exit event exactly
// once per launch.
func (r *Registry) onExit(sess *Session, code int, err error) {
	if !sess.markStopped() {
		return
	}
	if err != nil && code < 0 {
		sess.buf.Append(fmt.Sprintf("Emulator terminated: %v\n", err))
	} else {
		sess.buf.Append(fmt.Sprintf("Emulator exited with code %d\n", code))
	}

	r.slots.Release(sess.slot)
	if mErr := r.history.MarkStopped(sess.id, "stopped", &code); mErr != nil {
		r.logger.Error("record session stop", "session_id", sess.id, "error", mErr)
	}
	r.scheduleRemoval(sess)

	r.logger.Info("session stopped", "session_id", sess.id, "exit_code", code, "error", err)
}
