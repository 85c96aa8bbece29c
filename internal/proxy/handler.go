// Package proxy implements the per-connection state machine: read a
// handshake, then either splice the connection to a live backend or
// serve status/login locally while a start command boots one.
package proxy

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/seiftnesse/mc-lazyproxy/internal/ioutil"
	"github.com/seiftnesse/mc-lazyproxy/internal/logger"
	"github.com/seiftnesse/mc-lazyproxy/internal/netutil"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol/handshake"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol/login"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol/status"
	"github.com/seiftnesse/mc-lazyproxy/internal/stats"
)

const packetTimeout = 5 * time.Second

// StatusJSON is the status-ping response body served while the backend
// is unreachable. It is treated as an opaque configured literal.
const StatusJSON = `{"version":{"name":"1.21.7","protocol":772},"players":{"max":0,"online":0},"description":"Not a Minecraft server","enforceSecureProfile":false}`

// StartingDisconnectReason is the JSON-encoded reason sent to a client
// attempting to log in while the backend is unreachable.
const StartingDisconnectReason = `"Server is starting, please try again later"`

// Supervisor starts an external command at most once while one instance
// is already running.
type Supervisor interface {
	SpawnOnce() (bool, error)
}

// Handler handles accepted connections, forwarding each to forwardAddr
// when reachable and otherwise serving status/login itself while start
// triggers the backend's startup. Handle may be called concurrently,
// one call per connection.
type Handler struct {
	forwardAddr string
	start       Supervisor
	log         *logger.Logger
	stats       *stats.Stats
}

// NewHandler returns a Handler that forwards to forwardAddr, or invokes
// start and serves locally when forwardAddr is unreachable.
func NewHandler(forwardAddr string, start Supervisor, log *logger.Logger, st *stats.Stats) *Handler {
	return &Handler{forwardAddr: forwardAddr, start: start, log: log, stats: st}
}

// Handle runs the full per-connection state machine for conn. conn is
// closed before Handle returns.
func (h *Handler) Handle(conn net.Conn) {
	defer conn.Close()
	peer := conn.RemoteAddr()
	h.stats.IncrementConnections()

	if err := conn.SetReadDeadline(time.Now().Add(packetTimeout)); err != nil {
		h.log.Error("peer %s: set read deadline: %v", peer, err)
		h.stats.IncrementConnectionErrors()
		return
	}

	fr := protocol.NewFrameReader(conn)
	hs, raw, err := protocol.ReadFrame(fr, handshake.Decode)
	if err != nil {
		h.log.Error("peer %s: reading handshake: %v", peer, err)
		h.stats.IncrementConnectionErrors()
		return
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		h.log.Error("peer %s: clear read deadline: %v", peer, err)
		return
	}

	h.log.Info("peer %s: handshake server=%s port=%d next_state=%s", peer, hs.Address, hs.Port, hs.NextState)

	if backend, err := net.Dial("tcp", h.forwardAddr); err == nil {
		h.log.Debug("peer %s: connected to backend %s", peer, h.forwardAddr)
		h.forward(conn, backend, raw, peer)
		return
	}

	h.log.Debug("peer %s: backend %s unreachable, requesting start", peer, h.forwardAddr)
	h.stats.IncrementSpawnAttempts()
	started, err := h.start.SpawnOnce()
	if err != nil {
		h.log.Error("peer %s: spawn_once: %v", peer, err)
		h.stats.IncrementSpawnFailures()
	} else if started {
		h.stats.IncrementSpawnsStarted()
	}

	h.stats.IncrementLocalSessions()
	switch hs.NextState {
	case handshake.Status:
		h.statusLoop(fr, conn, peer)
	case handshake.Login, handshake.Transfer:
		h.loginLoop(fr, conn, peer)
	}
}

func (h *Handler) forward(client, backend net.Conn, handshakeRaw []byte, peer net.Addr) {
	defer backend.Close()
	h.stats.IncrementForwardedSessions()

	if err := netutil.TuneForForwarding(client); err != nil {
		h.log.Debug("peer %s: tune client conn: %v", peer, err)
	}
	if err := netutil.TuneForForwarding(backend); err != nil {
		h.log.Debug("peer %s: tune backend conn: %v", peer, err)
	}

	if _, err := backend.Write(handshakeRaw); err != nil {
		h.log.Error("peer %s: replaying handshake to backend: %v", peer, err)
		return
	}

	toBackend, toClient := ioutil.CopyBidirectional(client, backend)
	h.stats.AddBytesToBackend(uint64(toBackend.Written))
	h.stats.AddBytesToClient(uint64(toClient.Written))

	if toBackend.Err != nil && !isClosedErr(toBackend.Err) {
		h.log.Debug("peer %s: client->backend: %v", peer, toBackend.Err)
	}
	if toClient.Err != nil && !isClosedErr(toClient.Err) {
		h.log.Debug("peer %s: backend->client: %v", peer, toClient.Err)
	}
}

func (h *Handler) statusLoop(fr *protocol.FrameReader, conn net.Conn, peer net.Addr) {
	statusSent := false

	for {
		if err := conn.SetReadDeadline(time.Now().Add(packetTimeout)); err != nil {
			h.log.Error("peer %s: set read deadline: %v", peer, err)
			return
		}

		req, _, err := protocol.ReadFrame(fr, status.DecodeServerBound)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.log.Debug("peer %s: status loop: %v", peer, err)
			}
			return
		}

		switch req := req.(type) {
		case status.StatusRequest:
			if statusSent {
				h.log.Debug("peer %s: sent more than one status request", peer)
				return
			}
			statusSent = true
			if err := protocol.EncodeFrame(conn, status.StatusResponse{JSON: StatusJSON}); err != nil {
				h.log.Debug("peer %s: writing status response: %v", peer, err)
				return
			}
		case status.PingRequest:
			if err := protocol.EncodeFrame(conn, status.PongResponse{Timestamp: req.Timestamp}); err != nil {
				h.log.Debug("peer %s: writing pong response: %v", peer, err)
			}
			return
		}
	}
}

func (h *Handler) loginLoop(fr *protocol.FrameReader, conn net.Conn, peer net.Addr) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(packetTimeout)); err != nil {
			h.log.Error("peer %s: set read deadline: %v", peer, err)
			return
		}

		req, _, err := protocol.ReadFrame(fr, login.DecodeServerBound)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.log.Debug("peer %s: login loop: %v", peer, err)
			}
			return
		}

		start, ok := req.(login.LoginStart)
		if !ok {
			return
		}

		h.log.Info("peer %s: player connected name=%s uuid=%s", peer, start.Name, start.UUID)
		if err := protocol.EncodeFrame(conn, login.Disconnect{Reason: StartingDisconnectReason}); err != nil {
			h.log.Debug("peer %s: writing disconnect: %v", peer, err)
		}
		return
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
