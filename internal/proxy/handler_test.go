package proxy

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seiftnesse/mc-lazyproxy/internal/logger"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol/login"
	"github.com/seiftnesse/mc-lazyproxy/internal/protocol/status"
	"github.com/seiftnesse/mc-lazyproxy/internal/stats"
)

type fakeSupervisor struct {
	calls   atomic.Int32
	running atomic.Bool
}

func (f *fakeSupervisor) SpawnOnce() (bool, error) {
	f.calls.Add(1)
	if f.running.CompareAndSwap(false, true) {
		return true, nil
	}
	return false, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.FATAL, io.Discard, "")
}

func writeFrame(t *testing.T, w io.Writer, id int32, payload []byte) {
	t.Helper()
	total := int32(len(payload)) + protocol.VarIntSize(id)

	var buf bytes.Buffer
	if err := protocol.WriteVarInt(&buf, total); err != nil {
		t.Fatal(err)
	}
	if err := protocol.WriteVarInt(&buf, id); err != nil {
		t.Fatal(err)
	}
	buf.Write(payload)

	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
}

func writeHandshake(t *testing.T, w io.Writer, address string, port uint16, nextState int32) {
	t.Helper()
	var payload bytes.Buffer
	if err := protocol.WriteVarInt(&payload, 772); err != nil {
		t.Fatal(err)
	}
	if err := protocol.WriteString(&payload, address); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&payload, binary.BigEndian, port); err != nil {
		t.Fatal(err)
	}
	if err := protocol.WriteVarInt(&payload, nextState); err != nil {
		t.Fatal(err)
	}
	writeFrame(t, w, 0, payload.Bytes())
}

// unreachableAddr returns a loopback address nothing is listening on.
// Port 1 is a privileged port that refuses connections immediately.
const unreachableAddr = "127.0.0.1:1"

func TestHandlerStatusPathBackendDown(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sup := &fakeSupervisor{}
	h := NewHandler(unreachableAddr, sup, testLogger(), stats.New())

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	writeHandshake(t, client, "example", 25565, 1) // Status
	writeFrame(t, client, 0, nil)                  // StatusRequest

	var tsPayload bytes.Buffer
	binary.Write(&tsPayload, binary.BigEndian, int64(0x0123456789ABCDEF))
	writeFrame(t, client, 1, tsPayload.Bytes()) // PingRequest

	fr := protocol.NewFrameReader(client)

	resp, _, err := protocol.ReadFrame(fr, status.DecodeClientBound)
	if err != nil {
		t.Fatalf("reading status response: %v", err)
	}
	sr, ok := resp.(status.StatusResponse)
	if !ok || sr.JSON != StatusJSON {
		t.Fatalf("unexpected status response: %+v", resp)
	}

	pong, _, err := protocol.ReadFrame(fr, status.DecodeClientBound)
	if err != nil {
		t.Fatalf("reading pong response: %v", err)
	}
	pr, ok := pong.(status.PongResponse)
	if !ok || pr.Timestamp != 0x0123456789ABCDEF {
		t.Fatalf("unexpected pong response: %+v", pong)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after ping")
	}

	if sup.calls.Load() != 1 {
		t.Fatalf("spawn_once called %d times, want 1", sup.calls.Load())
	}
}

func TestHandlerLoginPathBackendDown(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sup := &fakeSupervisor{}
	h := NewHandler(unreachableAddr, sup, testLogger(), stats.New())

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	writeHandshake(t, client, "example", 25565, 2) // Login

	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	var payload bytes.Buffer
	protocol.WriteString(&payload, "Steve")
	raw, err := id.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	payload.Write(raw)
	writeFrame(t, client, 0, payload.Bytes()) // LoginStart

	fr := protocol.NewFrameReader(client)
	resp, _, err := protocol.ReadFrame(fr, login.DecodeClientBound)
	if err != nil {
		t.Fatalf("reading disconnect: %v", err)
	}
	dc, ok := resp.(login.Disconnect)
	if !ok || dc.Reason != StartingDisconnectReason {
		t.Fatalf("unexpected disconnect response: %+v", resp)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after disconnect")
	}

	if sup.calls.Load() != 1 {
		t.Fatalf("spawn_once called %d times, want 1", sup.calls.Load())
	}
}

func TestHandlerForwardingPath(t *testing.T) {
	backendListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer backendListener.Close()

	handshakeReceived := make(chan []byte, 1)
	echoed := make(chan []byte, 1)
	go func() {
		conn, err := backendListener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		handshakeReceived <- append([]byte(nil), buf[:n]...)

		n, err = conn.Read(buf)
		if err != nil {
			return
		}
		echoed <- append([]byte(nil), buf[:n]...)
		conn.Write(buf[:n])
	}()

	client, server := net.Pipe()
	defer client.Close()

	sup := &fakeSupervisor{}
	h := NewHandler(backendListener.Addr().String(), sup, testLogger(), stats.New())

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	writeHandshake(t, client, "example", 25565, 2) // Login

	select {
	case <-handshakeReceived:
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received the handshake frame")
	}

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-echoed:
		if string(got) != "ping" {
			t.Fatalf("backend received %q, want %q", got, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received forwarded bytes")
	}

	buf := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("reading echoed bytes back from backend: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("client received %q, want %q", buf, "ping")
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish after client close")
	}

	if sup.calls.Load() != 0 {
		t.Fatalf("spawn_once called %d times, want 0 on the forwarding path", sup.calls.Load())
	}
}

func TestHandlerMalformedHandshakeClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sup := &fakeSupervisor{}
	h := NewHandler(unreachableAddr, sup, testLogger(), stats.New())

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	writeHandshake(t, client, "example", 25565, 42) // invalid next_state

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not close the connection on a malformed handshake")
	}

	if sup.calls.Load() != 0 {
		t.Fatalf("spawn_once called %d times, want 0 for a malformed handshake", sup.calls.Load())
	}
}

func TestHandlerSpawnOnceCalledOncePerFailingConnection(t *testing.T) {
	sup := &fakeSupervisor{}

	const n = 10
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		client, server := net.Pipe()
		h := NewHandler(unreachableAddr, sup, testLogger(), stats.New())

		go func(client net.Conn) {
			defer client.Close()
			writeHandshake(t, client, "example", 25565, 1) // Status
			writeFrame(t, client, 0, nil)

			var tsPayload bytes.Buffer
			binary.Write(&tsPayload, binary.BigEndian, int64(42))
			writeFrame(t, client, 1, tsPayload.Bytes())

			io.Copy(io.Discard, client)
		}(client)

		go func(server net.Conn) {
			h.Handle(server)
			done <- struct{}{}
		}(server)
	}

	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("not all connections finished")
		}
	}

	if sup.calls.Load() != n {
		t.Fatalf("spawn_once called %d times across %d failing connections, want %d", sup.calls.Load(), n, n)
	}
}
