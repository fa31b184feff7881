package network

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecodePacket(t *testing.T) {
	payload := []byte(`{"roomCode":"690420"}`)

	frame, err := EncodePacket(MsgTypeJoinRoom, payload)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if len(frame) != 4+len(payload) {
		t.Fatalf("Expected frame length %d, got %d", 4+len(payload), len(frame))
	}

	packet, err := DecodePacket(frame)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeJoinRoom {
		t.Errorf("Expected msg id %d, got %d", MsgTypeJoinRoom, packet.MsgID)
	}
	if !bytes.Equal(packet.Data, payload) {
		t.Errorf("Payload mismatch: %s", packet.Data)
	}
}

func TestDecodePacket_Short(t *testing.T) {
	if _, err := DecodePacket([]byte{0, 1}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated header, got %v", err)
	}

	frame, _ := EncodePacket(MsgTypeLogin, []byte("hello"))
	if _, err := DecodePacket(frame[:6]); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for a truncated body, got %v", err)
	}
}

func TestEncodePacket_TooLarge(t *testing.T) {
	if _, err := EncodePacket(MsgTypeGameUpdated, make([]byte, 70000)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}
