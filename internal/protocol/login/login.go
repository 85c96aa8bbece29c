// Package login implements the player-join phase far enough to read a
// LoginStart and answer with a Disconnect; ids the real protocol
// defines beyond that are recognized but explicitly unsupported.
package login

import (
	"io"

	"github.com/google/uuid"

	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
)

const maxNameLen = 16
const maxReasonLen = 262144

// ServerBound is the set of packets a client may send in this phase.
type ServerBound interface {
	isServerBound()
}

// LoginStart begins authentication with a username and the player's
// UUID. Id 0.
type LoginStart struct {
	Name string
	UUID uuid.UUID
}

func (LoginStart) isServerBound() {}

func (LoginStart) PacketID() int32    { return 0 }
func (p LoginStart) EncodedSize() int { return protocol.StringSize(p.Name) + 16 }
func (p LoginStart) Encode(w io.Writer) error {
	if err := protocol.WriteString(w, p.Name); err != nil {
		return err
	}
	raw, err := p.UUID.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// DecodeServerBound decodes a server-bound login packet. Id 0 is
// LoginStart; ids 1-3 are packets the real protocol defines (encryption
// response, plugin response, cookie response) that this proxy never
// needs to understand because it disconnects before encryption begins.
func DecodeServerBound(id int32, r io.Reader) (ServerBound, error) {
	switch {
	case id == 0:
		name, err := protocol.ReadString(r, maxNameLen)
		if err != nil {
			return nil, err
		}
		var raw [16]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, err
		}
		playerID, err := uuid.FromBytes(raw[:])
		if err != nil {
			return nil, protocol.ErrInvalidData
		}
		return LoginStart{Name: name, UUID: playerID}, nil
	case id >= 1 && id <= 3:
		return nil, protocol.ErrUnsupported
	default:
		return nil, protocol.ErrInvalidData
	}
}

// Disconnect terminates the login sequence with a human-readable,
// JSON-encoded reason. Id 0.
type Disconnect struct {
	Reason string
}

func (Disconnect) PacketID() int32    { return 0 }
func (p Disconnect) EncodedSize() int { return protocol.StringSize(p.Reason) }
func (p Disconnect) Encode(w io.Writer) error {
	return protocol.WriteString(w, p.Reason)
}

// DecodeClientBound decodes a client-bound login packet. Exposed for
// symmetry and round-trip tests; ids 1-4 are recognized-but-unsupported
// (encryption request, set compression, plugin request, cookie request).
func DecodeClientBound(id int32, r io.Reader) (protocol.Message, error) {
	switch {
	case id == 0:
		reason, err := protocol.ReadString(r, maxReasonLen)
		if err != nil {
			return nil, err
		}
		return Disconnect{Reason: reason}, nil
	case id >= 1 && id <= 4:
		return nil, protocol.ErrUnsupported
	default:
		return nil, protocol.ErrInvalidData
	}
}
