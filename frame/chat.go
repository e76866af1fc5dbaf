package frame

import (
	"github.com/samber/oops"
)

// MaxTokenLen is the largest token the single-byte length prefix can carry.
const MaxTokenLen = 255

// ChatFrame is the decoded form of the datagram-channel chat frame, used
// identically in both directions: client to server carries the sender's
// own token, server to recipients carries the original sender's token so
// recipients can identify the speaker.
type ChatFrame struct {
	RoomName string
	Token    string
	Message  string
}

// Encode renders a ChatFrame to its wire form:
//
//	byte 0           : room_name_len (u8)
//	byte 1           : token_len     (u8)
//	bytes 2..2+R     : room_name
//	bytes 2+R..2+R+T : token
//	bytes 2+R+T..    : message (remainder of datagram)
func Encode(f ChatFrame) ([]byte, error) {
	if len(f.RoomName) == 0 || len(f.RoomName) > MaxNameLen {
		return nil, oops.Code("protocol_error").Errorf("room name length %d out of range", len(f.RoomName))
	}
	if len(f.Token) == 0 || len(f.Token) > MaxTokenLen {
		return nil, oops.Code("protocol_error").Errorf("token length %d out of range", len(f.Token))
	}

	buf := make([]byte, 2+len(f.RoomName)+len(f.Token)+len(f.Message))
	buf[0] = byte(len(f.RoomName))
	buf[1] = byte(len(f.Token))
	off := 2
	off += copy(buf[off:], f.RoomName)
	off += copy(buf[off:], f.Token)
	copy(buf[off:], f.Message)
	return buf, nil
}

// Decode parses a datagram-channel chat frame. A datagram shorter than
// 2 + room_name_len + token_len is malformed and rejected as a
// ProtocolError; the caller (the relay loop) drops such datagrams. A
// zero-length message is valid; the frame may be exactly
// 2 + room_name_len + token_len bytes long.
func Decode(buf []byte) (ChatFrame, error) {
	if len(buf) < 2 {
		return ChatFrame{}, oops.Code("protocol_error").Errorf("chat frame too short: %d bytes", len(buf))
	}

	roomLen := int(buf[0])
	tokenLen := int(buf[1])
	need := 2 + roomLen + tokenLen
	if len(buf) < need {
		return ChatFrame{}, oops.Code("protocol_error").Errorf("chat frame length mismatch: need at least %d, have %d", need, len(buf))
	}

	roomName := string(buf[2 : 2+roomLen])
	token := string(buf[2+roomLen : need])
	message := string(buf[need:])

	return ChatFrame{
		RoomName: roomName,
		Token:    token,
		Message:  message,
	}, nil
}
