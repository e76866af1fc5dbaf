// Package frame implements the two wire frames of the chat relay protocol:
// the stream-channel admission frame (CREATE/JOIN) and the datagram-channel
// chat frame. Both are length-prefixed and self-delimiting; decoding never
// partially trusts its input and always returns a tagged ProtocolError on
// malformed data rather than panicking or guessing.
package frame

import (
	"github.com/samber/oops"
)

// Op is the admission operation code carried in byte 1 of an admission frame.
type Op byte

const (
	// OpCreate requests creation of a new room; the sender becomes its host.
	OpCreate Op = 1
	// OpJoin requests joining an existing room as a guest.
	OpJoin Op = 2
)

// MaxNameLen is the largest room name the single-byte length prefix can carry.
const MaxNameLen = 255

// AdmissionRequest is the decoded form of the stream-channel admission frame
// sent once per connection, client to server.
type AdmissionRequest struct {
	Op       Op
	RoomName string
}

// EncodeAdmissionRequest renders an AdmissionRequest back to its wire form:
//
//	byte 0      : room_name_len (u8, 1..255)
//	byte 1      : operation     (u8)
//	byte 2      : state         (u8, reserved, always 0)
//	bytes 3..   : room_name
func EncodeAdmissionRequest(req AdmissionRequest) ([]byte, error) {
	if len(req.RoomName) == 0 || len(req.RoomName) > MaxNameLen {
		return nil, oops.Code("protocol_error").Errorf("room name length %d out of range", len(req.RoomName))
	}

	buf := make([]byte, 3+len(req.RoomName))
	buf[0] = byte(len(req.RoomName))
	buf[1] = byte(req.Op)
	buf[2] = 0
	copy(buf[3:], req.RoomName)
	return buf, nil
}

// DecodeAdmissionRequest parses a stream-channel admission frame. It rejects
// frames shorter than the fixed 3-byte header, frames whose declared room
// name length runs past the buffer, empty room names, and unknown operation
// codes, all as ProtocolError, never a partial or best-effort result.
func DecodeAdmissionRequest(buf []byte) (AdmissionRequest, error) {
	if len(buf) < 3 {
		return AdmissionRequest{}, oops.Code("protocol_error").Errorf("admission frame too short: %d bytes", len(buf))
	}

	nameLen := int(buf[0])
	op := Op(buf[1])
	// buf[2] (state) is reserved and ignored on receive.

	if nameLen == 0 {
		return AdmissionRequest{}, oops.Code("protocol_error").Errorf("empty room name")
	}
	if len(buf) != 3+nameLen {
		return AdmissionRequest{}, oops.Code("protocol_error").Errorf("admission frame length mismatch: declared %d, have %d", 3+nameLen, len(buf))
	}
	if op != OpCreate && op != OpJoin {
		return AdmissionRequest{}, oops.Code("protocol_error").Errorf("unknown admission operation %d", op)
	}

	return AdmissionRequest{
		Op:       op,
		RoomName: string(buf[3 : 3+nameLen]),
	}, nil
}
