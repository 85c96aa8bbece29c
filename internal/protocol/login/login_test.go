package login

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"github.com/seiftnesse/mc-lazyproxy/internal/protocol"
)

func TestDecodeServerBoundLoginStart(t *testing.T) {
	id := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")

	var payload bytes.Buffer
	if err := protocol.WriteString(&payload, "Notch"); err != nil {
		t.Fatal(err)
	}
	raw, err := id.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	payload.Write(raw)

	got, err := DecodeServerBound(0, bytes.NewReader(payload.Bytes()))
	if err != nil {
		t.Fatalf("DecodeServerBound: %v", err)
	}

	want := LoginStart{Name: "Notch", UUID: id}
	if got != want {
		t.Fatalf("DecodeServerBound = %+v, want %+v", got, want)
	}
}

func TestDecodeServerBoundRejectsUnsupportedIDs(t *testing.T) {
	for _, id := range []int32{1, 2, 3} {
		if _, err := DecodeServerBound(id, bytes.NewReader(nil)); err != protocol.ErrUnsupported {
			t.Fatalf("DecodeServerBound(%d) = %v, want ErrUnsupported", id, err)
		}
	}
}

func TestDecodeServerBoundRejectsUnknownID(t *testing.T) {
	if _, err := DecodeServerBound(4, bytes.NewReader(nil)); err != protocol.ErrInvalidData {
		t.Fatalf("DecodeServerBound(4) = %v, want ErrInvalidData", err)
	}
}

func TestDisconnectRoundTrip(t *testing.T) {
	pkt := Disconnect{Reason: `"Server is starting, please try again later"`}

	var buf bytes.Buffer
	if err := protocol.EncodeFrame(&buf, pkt); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	fr := protocol.NewFrameReader(&buf)
	decoded, _, err := protocol.ReadFrame(fr, DecodeClientBound)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if decoded != pkt {
		t.Fatalf("round trip = %+v, want %+v", decoded, pkt)
	}

	var payload bytes.Buffer
	if err := pkt.Encode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Len() != pkt.EncodedSize() {
		t.Fatalf("EncodedSize() = %d, actual = %d", pkt.EncodedSize(), payload.Len())
	}
}

func TestDecodeClientBoundRejectsUnsupportedIDs(t *testing.T) {
	for _, id := range []int32{1, 2, 3, 4} {
		if _, err := DecodeClientBound(id, bytes.NewReader(nil)); err != protocol.ErrUnsupported {
			t.Fatalf("DecodeClientBound(%d) = %v, want ErrUnsupported", id, err)
		}
	}
}

func TestDecodeClientBoundRejectsUnknownID(t *testing.T) {
	if _, err := DecodeClientBound(5, bytes.NewReader(nil)); err != protocol.ErrInvalidData {
		t.Fatalf("DecodeClientBound(5) = %v, want ErrInvalidData", err)
	}
}
