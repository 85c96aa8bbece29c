// Package protocol implements the Minecraft Java Edition handshake wire
// format: VarInt/string primitives, length-prefixed packet framing, and
// the streaming decoder/encoder pair used by the handshake, status, and
// login phases.
package protocol

import "errors"

// ErrInvalidData means the peer sent bytes that do not conform to the
// protocol (a malformed VarInt, an unknown packet id, a negative length).
// It is never recoverable for the connection it occurred on.
var ErrInvalidData = errors.New("protocol: invalid data")

// ErrUnsupported means the peer sent a packet id the protocol defines
// but this implementation does not decode. Distinct from ErrInvalidData:
// the peer is conforming, we simply haven't built the decoder.
var ErrUnsupported = errors.New("protocol: unsupported packet")

// ErrNeedMore is returned by Decoder.Decode when the buffer fed so far
// does not contain a complete frame. It is not a real error; callers
// should read more bytes and retry.
var ErrNeedMore = errors.New("protocol: need more data")
