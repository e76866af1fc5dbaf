package frame

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeChatFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    ChatFrame
	}{
		{"basic message", ChatFrame{RoomName: "party", Token: "host_10.0.0.1", Message: "hello"}},
		{"empty message", ChatFrame{RoomName: "party", Token: "guest_10.0.0.2_1", Message: ""}},
		{"max length room and token", ChatFrame{
			RoomName: string(bytes.Repeat([]byte("r"), MaxNameLen)),
			Token:    string(bytes.Repeat([]byte("t"), MaxTokenLen)),
			Message:  "hi",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.f)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if decoded != tt.f {
				t.Errorf("round trip mismatch: got %+v, want %+v", decoded, tt.f)
			}

			reEncoded, err := Encode(decoded)
			if err != nil {
				t.Fatalf("re-encode error = %v", err)
			}
			if !bytes.Equal(encoded, reEncoded) {
				t.Errorf("encode(decode(frame)) != frame: got %v, want %v", reEncoded, encoded)
			}
		})
	}
}

func TestDecodeChatFrameLiteral(t *testing.T) {
	// room "party", token "host_10.0.0.1", message "hello"
	buf := append([]byte{5, 0x0D}, []byte("partyhost_10.0.0.1hello")...)

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := ChatFrame{RoomName: "party", Token: "host_10.0.0.1", Message: "hello"}
	if f != want {
		t.Errorf("got %+v, want %+v", f, want)
	}
}

func TestDecodeChatFrameRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"too short for header", []byte{5}},
		{"declares more than present", []byte{5, 5, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.buf); err == nil {
				t.Errorf("Decode(%v) expected error, got nil", tt.buf)
			}
		})
	}
}

func TestDecodeChatFrameZeroLengthMessage(t *testing.T) {
	f := ChatFrame{RoomName: "r", Token: "t", Message: ""}
	encoded, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(encoded) != 2+1+1 {
		t.Fatalf("expected exactly 2+R+T bytes, got %d", len(encoded))
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Message != "" {
		t.Errorf("expected empty message, got %q", decoded.Message)
	}
}
