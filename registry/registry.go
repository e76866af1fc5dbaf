package registry

import (
	"net"
	"sync"
)

// tokenKey disambiguates tokens that are only guaranteed unique within a
// single room, not globally.
type tokenKey struct {
	room  string
	token string
}

// Registry is the authoritative in-memory table of rooms and their
// members. All operations are atomic with respect to each other under mu;
// it performs no I/O and blocking work must never happen while mu is held.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	byToken map[tokenKey]*Member
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		byToken: make(map[tokenKey]*Member),
	}
}

// Create inserts a new Room named roomName with a single host Member
// carrying token. It fails with ErrRoomExists if the name is already
// present; the registry is left unchanged on failure.
func (r *Registry) Create(roomName, token string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomName]; exists {
		return nil, ErrRoomExists
	}

	member := &Member{Token: token, IsHost: true}
	r.rooms[roomName] = &Room{Name: roomName, Members: []*Member{member}}
	r.byToken[tokenKey{roomName, token}] = member
	return member, nil
}

// Join appends a guest Member to an existing room. mintToken is invoked
// under the registry lock with the room's member count at join time so the
// reference "guest_<ip>_<n>" token scheme (and any scheme that depends on
// join-time member count) stays race-free. It fails with ErrRoomNotFound
// if the room does not exist.
func (r *Registry) Join(roomName string, mintToken func(memberCount int) string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomName]
	if !exists {
		return nil, ErrRoomNotFound
	}

	token := mintToken(len(room.Members))
	member := &Member{Token: token, IsHost: false}
	room.Members = append(room.Members, member)
	r.byToken[tokenKey{roomName, token}] = member
	return member, nil
}

// Authenticate returns the Member for (roomName, token) iff it is present
// in the registry. A token absent from the named room is unauthenticated
// and reported as ErrTokenNotFound; a wholly unknown room is reported as
// ErrRoomNotFound so callers can distinguish the two failure modes.
func (r *Registry) Authenticate(roomName, token string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomName]; !exists {
		return nil, ErrRoomNotFound
	}

	member, ok := r.byToken[tokenKey{roomName, token}]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return member, nil
}

// BindAddress authenticates (roomName, token) and records addr as that
// member's datagram address, lazily binding on the first valid datagram
// and rebinding on every subsequent one whose source address differs (see
// the relay package for why this matters for NAT rebinding). It returns
// the member so the relay can pass its token to MembersExcept, which takes
// the fanout snapshot in a separate critical section.
func (r *Registry) BindAddress(roomName, token string, addr *net.UDPAddr) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomName]; !exists {
		return nil, ErrRoomNotFound
	}

	member, ok := r.byToken[tokenKey{roomName, token}]
	if !ok {
		return nil, ErrTokenNotFound
	}

	if member.DatagramAddr == nil || member.DatagramAddr.String() != addr.String() {
		member.DatagramAddr = addr
	}
	return member, nil
}

// Recipient is a snapshot of one fanout target: just enough to send
// without holding the registry lock.
type Recipient struct {
	Token string
	Addr  *net.UDPAddr
}

// MembersExcept returns a snapshot of every bound member of roomName whose
// token is not excludeToken. Taking the snapshot under the lock and
// returning plain values (not live *Member pointers) is what lets the
// relay release the lock before it starts sending; see the relay package.
func (r *Registry) MembersExcept(roomName, excludeToken string) ([]Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomName]
	if !exists {
		return nil, ErrRoomNotFound
	}

	var out []Recipient
	for _, m := range room.Members {
		if m.Token == excludeToken || !m.bound() {
			continue
		}
		out = append(out, Recipient{Token: m.Token, Addr: m.DatagramAddr})
	}
	return out, nil
}

// RoomMemberTokens returns the tokens of roomName's members in join order,
// for diagnostics and tests. It returns ErrRoomNotFound if the room does
// not exist.
func (r *Registry) RoomMemberTokens(roomName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomName]
	if !exists {
		return nil, ErrRoomNotFound
	}

	tokens := make([]string, len(room.Members))
	for i, m := range room.Members {
		tokens[i] = m.Token
	}
	return tokens, nil
}

// RoomCount returns the number of rooms currently tracked, for metrics.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// MemberCount returns the total number of members across all rooms, for
// metrics.
func (r *Registry) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, room := range r.rooms {
		n += len(room.Members)
	}
	return n
}

// Clear removes every room and member. Used on server shutdown; there is
// no persistence to reconcile against.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]*Room)
	r.byToken = make(map[tokenKey]*Member)
}
