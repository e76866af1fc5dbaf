package frame

import (
	"strings"

	"github.com/samber/oops"
)

// Reply prefixes recognized by the client as success, per the admission
// frame contract: the token is the final whitespace-delimited field.
const (
	replyCreatedPrefix = "Room created "
	replyJoinedPrefix  = "Joined room "

	// ReplyRoomExists is sent when CREATE names an already-existing room.
	ReplyRoomExists = "Room already exists"
	// ReplyRoomNotFound is sent when JOIN names a room that does not exist.
	ReplyRoomNotFound = "Room not found"
)

// EncodeCreatedReply renders the CREATE-success admission reply.
func EncodeCreatedReply(token string) []byte {
	return []byte(replyCreatedPrefix + token)
}

// EncodeJoinedReply renders the JOIN-success admission reply.
func EncodeJoinedReply(token string) []byte {
	return []byte(replyJoinedPrefix + token)
}

// ParseAdmissionReply extracts the token from a successful admission reply.
// It returns an error if the reply does not carry one of the two success
// prefixes; callers use this to distinguish success from
// ReplyRoomExists/ReplyRoomNotFound/arbitrary error text.
func ParseAdmissionReply(reply string) (token string, err error) {
	if !strings.HasPrefix(reply, replyCreatedPrefix) && !strings.HasPrefix(reply, replyJoinedPrefix) {
		return "", oops.Code("admission_failed").Errorf("admission failed: %s", reply)
	}

	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return "", oops.Code("protocol_error").Errorf("empty admission reply")
	}

	return fields[len(fields)-1], nil
}
