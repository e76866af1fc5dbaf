// Package registry implements the in-memory room registry: the single
// piece of state shared between the admission and relay services. It
// performs no I/O and knows nothing about sockets or the wire protocol;
// it is a plain, mutex-guarded data structure modeling ordered room
// membership.
package registry

import "net"

// Member is one participant of a Room: its token, its host/guest status,
// and the UDP address the relay last observed a valid chat datagram from.
// DatagramAddr is nil until the relay performs its first lazy bind.
type Member struct {
	Token        string
	IsHost       bool
	DatagramAddr *net.UDPAddr
}

// Room is an ordered sequence of Members. Insertion order is join order;
// the host is always index 0.
type Room struct {
	Name    string
	Members []*Member
}

// bound reports whether m has had its DatagramAddr set by the relay.
func (m *Member) bound() bool {
	return m.DatagramAddr != nil
}
