// Package status implements the Server List Ping phase: a client sends
// StatusRequest then optionally PingRequest; the server answers with
// StatusResponse and PingResponse.
package status

import (
	"encoding/binary"
	"io"

	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
)

// maxJSONLen bounds the status JSON response; Minecraft strings cap at
// 32767 UTF-16 code units, and we treat that as a byte cap here too.
const maxJSONLen = 32767

// ServerBound is the set of packets a client may send in this phase.
type ServerBound interface {
	isServerBound()
}

// StatusRequest asks for the server list ping response. Id 0, empty.
type StatusRequest struct{}

func (StatusRequest) isServerBound() {}

// PingRequest carries an opaque client timestamp to be echoed back. Id 1.
type PingRequest struct {
	Timestamp int64
}

func (PingRequest) isServerBound() {}

// DecodeServerBound decodes a server-bound status packet. Ids other
// than 0 and 1 are not part of this phase.
func DecodeServerBound(id int32, r io.Reader) (ServerBound, error) {
	switch id {
	case 0:
		return StatusRequest{}, nil
	case 1:
		var ts int64
		if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
			return nil, err
		}
		return PingRequest{Timestamp: ts}, nil
	default:
		return nil, protocol.ErrInvalidData
	}
}

// StatusResponse answers a StatusRequest with a JSON document. Id 0.
type StatusResponse struct {
	JSON string
}

func (StatusResponse) PacketID() int32    { return 0 }
func (p StatusResponse) EncodedSize() int { return protocol.StringSize(p.JSON) }
func (p StatusResponse) Encode(w io.Writer) error {
	return protocol.WriteString(w, p.JSON)
}

// PongResponse echoes a PingRequest's timestamp back to the client. Id 1.
type PongResponse struct {
	Timestamp int64
}

func (PongResponse) PacketID() int32    { return 1 }
func (PongResponse) EncodedSize() int   { return 8 }
func (p PongResponse) Encode(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, p.Timestamp)
}

// DecodeClientBound decodes a client-bound status packet. Exposed for
// symmetry and round-trip tests; the proxy itself never reads these off
// the wire since it is always the one sending them.
func DecodeClientBound(id int32, r io.Reader) (protocol.Message, error) {
	switch id {
	case 0:
		json, err := protocol.ReadString(r, maxJSONLen)
		if err != nil {
			return nil, err
		}
		return StatusResponse{JSON: json}, nil
	case 1:
		var ts int64
		if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
			return nil, err
		}
		return PongResponse{Timestamp: ts}, nil
	default:
		return nil, protocol.ErrInvalidData
	}
}
