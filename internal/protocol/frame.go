package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// Message is satisfied by every encodable packet: a packet id, its
// exact encoded payload size, and a routine to write that payload.
type Message interface {
	PacketID() int32
	EncodedSize() int
	Encode(w io.Writer) error
}

// DecodeFunc interprets the payload of a single frame once its packet
// id has already been read. r is bounded to exactly the frame's
// declared length, so a malformed payload can never read into the
// next frame.
type DecodeFunc[T any] func(id int32, r io.Reader) (T, error)

// Decoder is a re-entrant streaming frame decoder. It owns a buffer of
// bytes not yet consumed; callers Feed it newly-read bytes and call
// Decode repeatedly until it stops returning ErrNeedMore.
//
// Decoded values copy their string/byte fields out of the frame rather
// than borrowing from the decoder's buffer: simpler lifetimes at the
// cost of one extra allocation per field, a trade the reference design
// explicitly allows. The raw frame bytes returned alongside the value
// are a copy of exactly the bytes that were consumed, so a caller that
// needs the original bytes (to replay a handshake to a backend, say)
// gets them without a second round of re-encoding.
type Decoder struct {
	buf    []byte
	needed int // minimum buffered length before trying again; 0 = unknown
}

// Feed appends newly-read bytes to the decoder's pending buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Decode attempts to decode exactly one frame from the bytes fed so
// far. It returns ErrNeedMore (never a fatal error) when the buffer
// does not yet hold a complete frame; the caller should Feed more
// bytes and call Decode again. Calling Decode again with no new bytes
// fed is a no-op that returns ErrNeedMore once more.
func Decode[T any](d *Decoder, decode DecodeFunc[T]) (value T, raw []byte, err error) {
	if d.needed > 0 && len(d.buf) < d.needed {
		return value, nil, ErrNeedMore
	}

	lr := bytes.NewReader(d.buf)
	length, err := ReadVarInt(lr)
	if err != nil {
		if incomplete(err) {
			d.needed = 0
			return value, nil, ErrNeedMore
		}
		return value, nil, err
	}
	if length < 0 {
		return value, nil, ErrInvalidData
	}

	prefixLen := len(d.buf) - lr.Len()
	frameEnd := prefixLen + int(length)
	if len(d.buf) < frameEnd {
		d.needed = frameEnd
		return value, nil, ErrNeedMore
	}

	// Narrow the view to exactly the declared frame extent so the
	// payload decoder can never read bytes belonging to the next frame.
	payload := d.buf[prefixLen:frameEnd]
	pr := bytes.NewReader(payload)

	id, err := ReadVarInt(pr)
	if err != nil {
		if incomplete(err) {
			// The declared length didn't even leave room for the
			// packet id VarInt: the frame itself is malformed, not
			// merely short on buffered bytes.
			return value, nil, ErrInvalidData
		}
		return value, nil, err
	}

	value, err = decode(id, pr)
	if err != nil {
		return value, nil, err
	}

	raw = append([]byte(nil), d.buf[:frameEnd]...)
	remaining := len(d.buf) - frameEnd
	copy(d.buf, d.buf[frameEnd:])
	d.buf = d.buf[:remaining]
	d.needed = 0

	return value, raw, nil
}

// EncodeFrame writes m to w as <VarInt total length><VarInt packet
// id><payload>, where total length covers the packet id and payload
// but not itself. It panics if m.EncodedSize() disagrees with the
// number of bytes m.Encode actually wrote, since that mismatch means
// the frame is desynchronized beyond recovery.
func EncodeFrame(w io.Writer, m Message) error {
	id := m.PacketID()
	size := m.EncodedSize()
	total := size + VarIntSize(id)

	var buf bytes.Buffer
	buf.Grow(VarIntSize(int32(total)) + total)

	if err := WriteVarInt(&buf, int32(total)); err != nil {
		return err
	}

	start := buf.Len()
	if err := WriteVarInt(&buf, id); err != nil {
		return err
	}
	if err := m.Encode(&buf); err != nil {
		return err
	}
	if got := buf.Len() - start; got != total {
		panic(fmt.Sprintf("protocol: packet id %d declared size %d but wrote %d", id, total, got))
	}

	_, err := w.Write(buf.Bytes())
	return err
}
