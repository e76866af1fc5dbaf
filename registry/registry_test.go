package registry

import (
	"errors"
	"fmt"
	"net"
	"testing"
)

func mustUDPAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		t.Fatalf("ResolveUDPAddr(%q) error = %v", s, err)
	}
	return addr
}

func TestCreateThenDuplicateCreateIsNameConflict(t *testing.T) {
	reg := New()

	if _, err := reg.Create("party", "host_10.0.0.1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := reg.Create("party", "host_10.0.0.3"); !errors.Is(err, ErrRoomExists) {
		t.Errorf("second Create() error = %v, want ErrRoomExists", err)
	}

	tokens, err := reg.RoomMemberTokens("party")
	if err != nil {
		t.Fatalf("RoomMemberTokens() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "host_10.0.0.1" {
		t.Errorf("registry mutated on failed Create: got %v", tokens)
	}
}

func TestJoinMissingRoomIsNotFound(t *testing.T) {
	reg := New()

	_, err := reg.Join("absent", func(int) string { return "guest_10.0.0.1_0" })
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Join() error = %v, want ErrRoomNotFound", err)
	}
}

func TestFirstMemberIsAlwaysHost(t *testing.T) {
	reg := New()

	host, err := reg.Create("party", "host_10.0.0.1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !host.IsHost {
		t.Error("first member must have IsHost = true")
	}

	guest, err := reg.Join("party", func(n int) string { return fmt.Sprintf("guest_10.0.0.2_%d", n) })
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if guest.IsHost {
		t.Error("subsequent member must have IsHost = false")
	}

	tokens, _ := reg.RoomMemberTokens("party")
	if tokens[0] != host.Token {
		t.Errorf("host must be index 0, got %v", tokens)
	}
}

func TestJoinTokenUsesMemberCountAtJoinTime(t *testing.T) {
	reg := New()
	reg.Create("party", "host_10.0.0.1")

	mint := func(n int) string { return fmt.Sprintf("guest_10.0.0.2_%d", n) }

	guest1, err := reg.Join("party", mint)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if guest1.Token != "guest_10.0.0.2_1" {
		t.Errorf("got token %q, want guest_10.0.0.2_1", guest1.Token)
	}

	guest2, err := reg.Join("party", mint)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if guest2.Token != "guest_10.0.0.2_2" {
		t.Errorf("got token %q, want guest_10.0.0.2_2", guest2.Token)
	}
}

func TestAuthenticateUnknownTokenVsUnknownRoom(t *testing.T) {
	reg := New()
	reg.Create("party", "host_10.0.0.1")

	if _, err := reg.Authenticate("party", "xxxxx"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Authenticate() with bad token error = %v, want ErrTokenNotFound", err)
	}

	if _, err := reg.Authenticate("absent", "host_10.0.0.1"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Authenticate() with bad room error = %v, want ErrRoomNotFound", err)
	}
}

func TestBindAddressLazyBindAndRebind(t *testing.T) {
	reg := New()
	reg.Create("party", "host_10.0.0.1")
	reg.Join("party", func(n int) string { return "guest_10.0.0.2_1" })

	addr1 := mustUDPAddr(t, "10.0.0.2:40000")
	member, err := reg.BindAddress("party", "guest_10.0.0.2_1", addr1)
	if err != nil {
		t.Fatalf("BindAddress() error = %v", err)
	}
	if member.DatagramAddr.String() != addr1.String() {
		t.Errorf("got %v, want %v", member.DatagramAddr, addr1)
	}

	// NAT rebind: same token, new source address.
	addr2 := mustUDPAddr(t, "10.0.0.2:40001")
	member, err = reg.BindAddress("party", "guest_10.0.0.2_1", addr2)
	if err != nil {
		t.Fatalf("BindAddress() rebind error = %v", err)
	}
	if member.DatagramAddr.String() != addr2.String() {
		t.Errorf("after rebind got %v, want %v", member.DatagramAddr, addr2)
	}
}

func TestMembersExceptExcludesSenderAndUnbound(t *testing.T) {
	reg := New()
	reg.Create("party", "host_10.0.0.1")
	reg.Join("party", func(n int) string { return "guest_10.0.0.2_1" })

	// Neither member has sent a datagram yet: fanout coverage is zero.
	recipients, err := reg.MembersExcept("party", "host_10.0.0.1")
	if err != nil {
		t.Fatalf("MembersExcept() error = %v", err)
	}
	if len(recipients) != 0 {
		t.Errorf("expected no bound recipients yet, got %v", recipients)
	}

	hostAddr := mustUDPAddr(t, "10.0.0.1:5000")
	reg.BindAddress("party", "host_10.0.0.1", hostAddr)
	guestAddr := mustUDPAddr(t, "10.0.0.2:5000")
	reg.BindAddress("party", "guest_10.0.0.2_1", guestAddr)

	recipients, err = reg.MembersExcept("party", "guest_10.0.0.2_1")
	if err != nil {
		t.Fatalf("MembersExcept() error = %v", err)
	}
	if len(recipients) != 1 || recipients[0].Token != "host_10.0.0.1" {
		t.Errorf("got %v, want exactly the host", recipients)
	}
}

func TestNoLeakOnAuthFailure(t *testing.T) {
	reg := New()
	reg.Create("party", "host_10.0.0.1")
	before, _ := reg.RoomMemberTokens("party")

	if _, err := reg.BindAddress("party", "forged", mustUDPAddr(t, "10.0.0.4:1")); err == nil {
		t.Fatal("expected BindAddress to fail for an unknown token")
	}

	after, _ := reg.RoomMemberTokens("party")
	if len(before) != len(after) {
		t.Errorf("registry mutated on auth failure: before %v, after %v", before, after)
	}
}
