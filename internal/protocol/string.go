package protocol

import (
	"io"
	"math"
	"unicode/utf8"
)

// ReadString reads a VarInt byte length followed by that many UTF-8
// bytes. maxLen bounds the accepted length (Minecraft strings are
// bounded per-field); pass a large value for effectively-unbounded
// fields such as a status JSON payload.
func ReadString(r io.Reader, maxLen int32) (string, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if length < 0 || length > maxLen {
		return "", ErrInvalidData
	}
	if length == 0 {
		return "", nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidData
	}

	return string(data), nil
}

// WriteString writes s as a VarInt length followed by its UTF-8 bytes.
func WriteString(w io.Writer, s string) error {
	if len(s) > math.MaxInt32 {
		return ErrInvalidData
	}
	if err := WriteVarInt(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// StringSize returns the exact encoded size of s: the VarInt length
// prefix plus the UTF-8 byte count.
func StringSize(s string) int {
	return VarIntSize(int32(len(s))) + len(s)
}
