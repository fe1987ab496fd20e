// Package relay bridges websocket clients to the VNC endpoint of a running
// session. Frames are passed through verbatim in both directions; the relay
// never inspects the RFB protocol.
package relay

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sriail/browser-ig/internal/session"
)

const dialTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// VNC clients are typically served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EndpointResolver maps a session id to its VNC tcp address.
type EndpointResolver interface {
	Endpoint(id string) (string, error)
}

// Handler serves the websocket side of the relay.
type Handler struct {
	resolver EndpointResolver
	logger   *slog.Logger
}

func NewHandler(resolver EndpointResolver, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// ServeVNC upgrades the request and pipes bytes between the client and the
// session's VNC server. The session is resolved before the upgrade so that
// plain HTTP status codes reach clients with a dead or unknown id.
func (h *Handler) ServeVNC(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	addr, err := h.resolver.Endpoint(id)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, session.ErrNotRunning):
			http.Error(w, "session not running", http.StatusServiceUnavailable)
		default:
			http.Error(w, "relay unavailable", http.StatusInternalServerError)
		}
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}

	tcp, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		h.logger.Warn("vnc dial failed", "session_id", id, "addr", addr, "error", err)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "vnc unreachable"),
			time.Now().Add(time.Second))
		ws.Close()
		return
	}

	h.logger.Info("vnc relay established", "session_id", id, "addr", addr)
	h.pipe(ws, tcp)
	h.logger.Info("vnc relay closed", "session_id", id)
}

// pipe copies in both directions until either side fails or closes. The
// first error tears down both connections, which unblocks the other copier.
func (h *Handler) pipe(ws *websocket.Conn, tcp net.Conn) {
	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if _, err := tcp.Write(data); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 32*1024)
		for {
			n, err := tcp.Read(buf)
			if n > 0 {
				if werr := ws.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	<-done
	ws.Close()
	tcp.Close()
	<-done
}
