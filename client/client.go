// Package client implements the two halves of the chat relay's client
// side: Connect, which performs the one-shot admission handshake over a
// stream socket, and Session, which then carries on the datagram chat
// exchange using the token Connect returned.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"github.com/nullroom/chatrelay/frame"
)

// DefaultAdmissionTimeout bounds how long Connect waits for the
// admission reply before giving up.
const DefaultAdmissionTimeout = 5 * time.Second

// Admitted is the result of a successful admission handshake: the token
// the caller must present on every subsequent chat datagram.
type Admitted struct {
	Token    string
	RoomName string
}

// Connect dials admissionAddr, sends a single CREATE or JOIN frame for
// roomName, and returns the token minted in reply. The stream connection
// is closed before Connect returns; admission is a
// one-shot exchange, never held open for chat traffic.
func Connect(admissionAddr, roomName string, op frame.Op) (Admitted, error) {
	conn, err := net.DialTimeout("tcp", admissionAddr, DefaultAdmissionTimeout)
	if err != nil {
		return Admitted{}, oops.Code("fatal_io").Wrapf(err, "client: dial %s", admissionAddr)
	}
	defer conn.Close()

	req, err := frame.EncodeAdmissionRequest(frame.AdmissionRequest{Op: op, RoomName: roomName})
	if err != nil {
		return Admitted{}, err
	}
	if _, err := conn.Write(req); err != nil {
		return Admitted{}, oops.Code("fatal_io").Wrapf(err, "client: send admission frame")
	}

	conn.SetReadDeadline(time.Now().Add(DefaultAdmissionTimeout))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return Admitted{}, oops.Code("fatal_io").Wrapf(err, "client: read admission reply")
	}

	token, err := frame.ParseAdmissionReply(string(buf[:n]))
	if err != nil {
		return Admitted{}, err
	}

	return Admitted{Token: token, RoomName: roomName}, nil
}

// Session carries on the datagram chat exchange for an already-admitted
// member: one goroutine relays incoming datagrams to out, another reads
// lines from in and sends them as chat frames, until ctx is canceled or
// in reaches EOF.
type Session struct {
	conn  *net.UDPConn
	admit Admitted
	log   *logger.Entry
}

// Dial opens the UDP socket the Session will use to talk to relayAddr.
// It does not send anything; the relay only learns this socket's
// address from the session's first outbound chat datagram.
func Dial(relayAddr string, admit Admitted, log *logger.Entry) (*Session, error) {
	addr, err := net.ResolveUDPAddr("udp", relayAddr)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "client: resolve relay %s", relayAddr)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "client: dial relay %s", relayAddr)
	}
	return &Session{conn: conn, admit: admit, log: log}, nil
}

// Close releases the session's datagram socket.
func (s *Session) Close() error {
	return s.conn.Close()
}

// quitCommand, entered case-insensitively on its own line, ends the
// session's input loop.
const quitCommand = "/quit"

// Run drives the session until ctx is canceled, in reaches EOF, or the
// user types /quit. Incoming chat lines are written to out as
// "[room] sender: message"; the session's own messages are never echoed
// back by the relay, so no self-filtering is needed here.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	errCh := make(chan error, 2)

	go s.readLoop(ctx, out, errCh)
	go s.writeLoop(ctx, in, errCh)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Session) readLoop(ctx context.Context, out io.Writer, errCh chan<- error) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := s.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			errCh <- oops.Code("fatal_io").Wrapf(err, "client: read chat datagram")
			return
		}

		chat, err := frame.Decode(buf[:n])
		if err != nil {
			s.log.WithError(err).Debug("dropping malformed chat datagram from relay")
			continue
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", chat.RoomName, chat.Token, chat.Message)
	}
}

func (s *Session) writeLoop(ctx context.Context, in io.Reader, errCh chan<- error) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), quitCommand) {
			errCh <- nil
			return
		}

		encoded, err := frame.Encode(frame.ChatFrame{
			RoomName: s.admit.RoomName,
			Token:    s.admit.Token,
			Message:  line,
		})
		if err != nil {
			s.log.WithError(err).Warn("failed to encode chat frame")
			continue
		}
		if _, err := s.conn.Write(encoded); err != nil {
			errCh <- oops.Code("fatal_io").Wrapf(err, "client: send chat frame")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		errCh <- oops.Code("fatal_io").Wrapf(err, "client: read stdin")
		return
	}
	errCh <- nil
}
