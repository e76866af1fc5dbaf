// Package relay implements the receive-loop on the chat relay's datagram
// port: it authenticates every incoming chat datagram by (room, token),
// lazily learns each member's return address from their first valid
// datagram, and fans the message out to every other bound member of the
// room.
//
// Lazy address binding is the subtle contract this package exists to
// preserve: the admission phase over TCP never sees the client's UDP
// socket, so the relay is the only place a member's datagram address is
// ever learned or updated.
package relay

import (
	"context"
	"errors"
	"net"

	"github.com/go-i2p/logger"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/nullroom/chatrelay/frame"
	"github.com/nullroom/chatrelay/registry"
)

// Metrics receives relay outcomes for the server's observability layer.
type Metrics interface {
	ObserveAuthFailure()
	ObserveFanout(n int)
}

// DefaultBufferSize is the largest chat datagram the relay will accept.
const DefaultBufferSize = 4096

// unauthorizedReply is sent back to the sender of a datagram that fails
// authentication, whether the room is unknown or the token is not a member
// of it. Both cases also count as one auth failure in metrics; only the
// logged error tells them apart.
const unauthorizedReply = "Unauthorized"

type noopMetrics struct{}

func (noopMetrics) ObserveAuthFailure() {}
func (noopMetrics) ObserveFanout(int)   {}

// Server is the relay service: a listening datagram endpoint plus the
// same registry reference the admission service mutates.
type Server struct {
	conn     *net.UDPConn
	registry *registry.Registry
	bufSize  int
	metrics  Metrics
	log      *logger.Entry
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithBufferSize overrides DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(s *Server) { s.bufSize = n }
}

// WithMetrics wires an observability sink for relay outcomes.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New binds a UDP socket on addr and returns a relay Server over reg.
// Call Serve to start the receive loop.
func New(addr string, reg *registry.Registry, log *logger.Entry, opts ...Option) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "relay: resolve %s", addr)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "relay: listen on %s", addr)
	}

	s := &Server{
		conn:     conn,
		registry: reg,
		bufSize:  DefaultBufferSize,
		metrics:  noopMetrics{},
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the bound socket address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close stops the receive loop by closing the underlying socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Serve runs the main receive loop until ctx is canceled or the socket is
// closed. There is no per-datagram timeout; receiving blocks.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, s.bufSize)
	for {
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.WithError(err).Warn("relay receive error")
			continue
		}

		// Copy out of the shared receive buffer before any further work,
		// since the next ReadFromUDP call reuses it.
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		s.handleDatagram(datagram, src)
	}
}

func (s *Server) handleDatagram(datagram []byte, src *net.UDPAddr) {
	batchID := uuid.NewString()
	log := s.log.WithField("batch_id", batchID).WithField("remote_addr", src.String())

	chat, err := frame.Decode(datagram)
	if err != nil {
		// A parse failure is dropped silently rather than replied to.
		log.WithError(err).Debug("dropping malformed chat datagram")
		return
	}

	log = log.WithField("room", chat.RoomName).WithField("token", chat.Token)

	member, err := s.registry.BindAddress(chat.RoomName, chat.Token, src)
	if err != nil {
		log.WithError(err).Debug("relay auth failure")
		s.metrics.ObserveAuthFailure()
		s.conn.WriteToUDP([]byte(unauthorizedReply), src)
		return
	}

	outbound, err := frame.Encode(chat)
	if err != nil {
		log.WithError(err).Warn("failed to re-encode outbound chat frame")
		return
	}

	recipients, err := s.registry.MembersExcept(chat.RoomName, member.Token)
	if err != nil {
		log.WithError(err).Warn("unexpected error building fanout snapshot")
		return
	}

	s.metrics.ObserveFanout(len(recipients))
	for _, r := range recipients {
		if _, err := s.conn.WriteToUDP(outbound, r.Addr); err != nil {
			// A per-recipient send failure never aborts fanout to others.
			log.WithError(err).WithField("recipient_token", r.Token).Debug("fanout send failed")
		}
	}
}
