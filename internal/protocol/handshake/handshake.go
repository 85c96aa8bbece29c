// Package handshake implements the single mandatory first packet of
// the Minecraft Java Edition protocol, which selects the next phase
// (status or login) the connection will use.
package handshake

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
)

// NextState is the phase the client wants to enter after the
// handshake.
type NextState int32

const (
	Status   NextState = 1
	Login    NextState = 2
	Transfer NextState = 3
)

func (s NextState) String() string {
	switch s {
	case Status:
		return "status"
	case Login:
		return "login"
	case Transfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Packet is the server-bound Handshake packet, id 0.
type Packet struct {
	Version   int32
	Address   string
	Port      uint16
	NextState NextState
}

const maxAddressLen = 255

func (p *Packet) PacketID() int32 { return 0 }

func (p *Packet) EncodedSize() int {
	return protocol.VarIntSize(p.Version) + protocol.StringSize(p.Address) + 2 + protocol.VarIntSize(int32(p.NextState))
}

func (p *Packet) Encode(w io.Writer) error {
	if err := protocol.WriteVarInt(w, p.Version); err != nil {
		return err
	}
	if err := protocol.WriteString(w, p.Address); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, p.Port); err != nil {
		return err
	}
	return protocol.WriteVarInt(w, int32(p.NextState))
}

// Decode decodes the handshake payload. Only packet id 0 is valid in
// this phase; anything else is a non-conforming peer.
func Decode(id int32, r io.Reader) (Packet, error) {
	if id != 0 {
		return Packet{}, protocol.ErrInvalidData
	}

	var p Packet

	version, err := protocol.ReadVarInt(r)
	if err != nil {
		return Packet{}, err
	}
	p.Version = version

	address, err := protocol.ReadString(r, maxAddressLen)
	if err != nil {
		return Packet{}, err
	}
	p.Address = address

	if err := binary.Read(r, binary.BigEndian, &p.Port); err != nil {
		return Packet{}, err
	}

	next, err := protocol.ReadVarInt(r)
	if err != nil {
		return Packet{}, err
	}
	switch NextState(next) {
	case Status, Login, Transfer:
		p.NextState = NextState(next)
	default:
		return Packet{}, protocol.ErrInvalidData
	}

	return p, nil
}
