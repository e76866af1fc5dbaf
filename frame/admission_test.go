package frame

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeAdmissionRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  AdmissionRequest
	}{
		{"create short name", AdmissionRequest{Op: OpCreate, RoomName: "party"}},
		{"join short name", AdmissionRequest{Op: OpJoin, RoomName: "party"}},
		{"max length room name", AdmissionRequest{Op: OpCreate, RoomName: string(bytes.Repeat([]byte("a"), MaxNameLen))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeAdmissionRequest(tt.req)
			if err != nil {
				t.Fatalf("EncodeAdmissionRequest() error = %v", err)
			}

			decoded, err := DecodeAdmissionRequest(encoded)
			if err != nil {
				t.Fatalf("DecodeAdmissionRequest() error = %v", err)
			}

			if decoded != tt.req {
				t.Errorf("round trip mismatch: got %+v, want %+v", decoded, tt.req)
			}

			reEncoded, err := EncodeAdmissionRequest(decoded)
			if err != nil {
				t.Fatalf("re-encode error = %v", err)
			}
			if !bytes.Equal(encoded, reEncoded) {
				t.Errorf("encode(decode(frame)) != frame: got %v, want %v", reEncoded, encoded)
			}
		})
	}
}

func TestDecodeAdmissionRequestLiteral(t *testing.T) {
	// CREATE "party": [05][01][00]"party"
	buf := append([]byte{5, 1, 0}, []byte("party")...)

	req, err := DecodeAdmissionRequest(buf)
	if err != nil {
		t.Fatalf("DecodeAdmissionRequest() error = %v", err)
	}
	if req.Op != OpCreate || req.RoomName != "party" {
		t.Errorf("got %+v, want Op=OpCreate RoomName=party", req)
	}
}

func TestDecodeAdmissionRequestRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"too short", []byte{1, 2}},
		{"empty room name", []byte{0, 1, 0}},
		{"length mismatch short payload", []byte{5, 1, 0, 'p', 'a'}},
		{"unknown operation", append([]byte{5, 9, 0}, []byte("party")...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAdmissionRequest(tt.buf); err == nil {
				t.Errorf("DecodeAdmissionRequest(%v) expected error, got nil", tt.buf)
			}
		})
	}
}

func TestParseAdmissionReply(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantToken string
		wantErr   bool
	}{
		{"create success", "Room created host_10.0.0.1", "host_10.0.0.1", false},
		{"join success", "Joined room guest_10.0.0.2_1", "guest_10.0.0.2_1", false},
		{"room exists", ReplyRoomExists, "", true},
		{"room not found", ReplyRoomNotFound, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ParseAdmissionReply(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAdmissionReply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && token != tt.wantToken {
				t.Errorf("got token %q, want %q", token, tt.wantToken)
			}
		})
	}
}
