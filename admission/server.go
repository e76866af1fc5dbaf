// Package admission implements the accept-thread over the chat relay's
// stream port: it decodes CREATE/JOIN admission frames, mints tokens,
// mutates the shared room registry, and replies to the client. Every
// connection is terminal: one request, one reply, then CLOSED.
package admission

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-i2p/logger"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/nullroom/chatrelay/frame"
	"github.com/nullroom/chatrelay/registry"
)

// Metrics receives admission outcomes for the server's observability
// layer. The admission package depends only on this narrow interface so
// it never imports the concrete Prometheus wiring in package server.
type Metrics interface {
	ObserveAdmission(outcome string)
}

const (
	// DefaultReadTimeout bounds how long a connection may take to deliver
	// its admission frame before the server gives up on it.
	DefaultReadTimeout = 5 * time.Second
	// DefaultMaxFrameSize rejects any admission frame larger than this
	// many bytes outright.
	DefaultMaxFrameSize = 4096
)

// noopMetrics discards every observation; used when the caller does not
// wire a Metrics implementation.
type noopMetrics struct{}

func (noopMetrics) ObserveAdmission(string) {}

// Server is the admission service: a listening stream endpoint plus a
// shared reference to the room registry.
type Server struct {
	listener    net.Listener
	registry    *registry.Registry
	readTimeout time.Duration
	maxFrame    int
	metrics     Metrics
	log         *logger.Entry
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithMaxFrameSize overrides DefaultMaxFrameSize.
func WithMaxFrameSize(n int) Option {
	return func(s *Server) { s.maxFrame = n }
}

// WithMetrics wires an observability sink for admission outcomes.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New binds a TCP listener on addr and returns an admission Server over
// reg. Call Serve to start accepting connections.
func New(addr string, reg *registry.Registry, log *logger.Entry, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "admission: listen on %s", addr)
	}

	s := &Server{
		listener:    ln,
		registry:    reg,
		readTimeout: DefaultReadTimeout,
		maxFrame:    DefaultMaxFrameSize,
		metrics:     noopMetrics{},
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the bound listener address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is canceled or the listener fails.
// Each connection is handled in its own goroutine; admissions proceed in
// parallel but serialize at the registry's internal mutex.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return oops.Code("fatal_io").Wrapf(err, "admission: accept")
			}
		}
		go s.handleConn(conn)
	}
}

// Close stops the listener without waiting for in-flight connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// handleConn runs the per-connection state machine:
//
//	ACCEPTED --read frame--> DECODED --registry op--> {REPLIED_OK, REPLIED_FAIL} --> CLOSED
//	     \-- read error / timeout ------------------> CLOSED
//
// The terminal state is always CLOSED; the admission socket is never held
// open across requests.
func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	log := s.log.WithField("conn_id", connID).WithField("remote_addr", conn.RemoteAddr().String())

	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		log.WithError(err).Warn("failed to set read deadline")
	}

	buf := make([]byte, s.maxFrame)
	n, err := conn.Read(buf)
	if err != nil {
		log.WithError(err).Debug("admission read failed")
		s.metrics.ObserveAdmission("read_error")
		return
	}

	req, err := frame.DecodeAdmissionRequest(buf[:n])
	if err != nil {
		log.WithError(err).Debug("admission frame decode failed")
		s.metrics.ObserveAdmission("protocol_error")
		writeLine(conn, "Protocol error")
		return
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	log = log.WithField("room", req.RoomName)

	switch req.Op {
	case frame.OpCreate:
		s.handleCreate(conn, log, req.RoomName, host)
	case frame.OpJoin:
		s.handleJoin(conn, log, req.RoomName, host)
	}
}

func (s *Server) handleCreate(conn net.Conn, log *logger.Entry, roomName, hostIP string) {
	token := fmt.Sprintf("host_%s", hostIP)

	if _, err := s.registry.Create(roomName, token); err != nil {
		log.Info("room already exists")
		s.metrics.ObserveAdmission("name_conflict")
		writeLine(conn, frame.ReplyRoomExists)
		return
	}

	log.WithField("token", token).Info("room created")
	s.metrics.ObserveAdmission("created")
	conn.Write(frame.EncodeCreatedReply(token))
}

func (s *Server) handleJoin(conn net.Conn, log *logger.Entry, roomName, hostIP string) {
	member, err := s.registry.Join(roomName, func(memberCount int) string {
		return fmt.Sprintf("guest_%s_%d", hostIP, memberCount)
	})
	if err != nil {
		log.Info("join failed: room not found")
		s.metrics.ObserveAdmission("not_found")
		writeLine(conn, frame.ReplyRoomNotFound)
		return
	}

	log.WithField("token", member.Token).Info("guest joined room")
	s.metrics.ObserveAdmission("joined")
	conn.Write(frame.EncodeJoinedReply(member.Token))
}

func writeLine(conn net.Conn, s string) {
	conn.Write([]byte(s))
}
