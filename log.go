// Package chatrelay implements the multi-room chat relay: a two-port
// server where clients negotiate room membership over TCP and exchange
// chat messages over UDP, which the server fans out to co-members.
package chatrelay

import (
	"github.com/go-i2p/logger"
)

// log is this root package's structured logger. It is unexported, so the
// subpackages do not use it; they receive a *logger.Entry from their
// constructors and attach fields (room, conn_id, remote_addr) rather than
// interpolating them into the message string.
var log = logger.GetGoI2PLogger()
