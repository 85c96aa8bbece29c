package protocol

import "io"

// FrameReader pairs a Decoder with the io.Reader it pulls bytes from,
// so a caller can ask for "the next frame" without manually looping on
// ErrNeedMore. Read deadlines, if any, are the caller's responsibility
// (set them on the underlying connection before calling ReadFrame).
type FrameReader struct {
	r   io.Reader
	dec Decoder
	tmp [4096]byte
}

// NewFrameReader wraps r for frame-at-a-time decoding.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads and decodes exactly one frame, pulling more bytes
// from the underlying reader as needed. It returns the decoded value
// and the raw bytes the frame occupied on the wire (length prefix,
// packet id, and payload).
func ReadFrame[T any](fr *FrameReader, decode DecodeFunc[T]) (value T, raw []byte, err error) {
	for {
		value, raw, err = Decode(&fr.dec, decode)
		if err == nil {
			return value, raw, nil
		}
		if err != ErrNeedMore {
			return value, nil, err
		}

		n, rerr := fr.r.Read(fr.tmp[:])
		if n > 0 {
			fr.dec.Feed(fr.tmp[:n])
		}
		if rerr != nil {
			var zero T
			return zero, nil, rerr
		}
	}
}
