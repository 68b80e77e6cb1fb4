package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"kestrel/internal/book"
	"kestrel/internal/protocol"
)

// Config carries the listener settings for an exchange server.
type Config struct {
	// Network is "unix" or "tcp".
	Network string
	// Address is the socket path or host:port.
	Address string
	// Instrument names the traded pair, e.g. "KST-USD".
	Instrument string
}

type command struct {
	sess *session
	req  protocol.Request
}

// Server hosts a single order book behind a framed socket protocol.
// Every request funnels through one command loop goroutine, which is
// the only goroutine that touches the book.
type Server struct {
	cfg Config
	log zerolog.Logger

	book *book.Book
	feed *feedBuffer
	ser  protocol.Serializer

	commands chan command

	sessionMu sync.Mutex
	sessions  map[string]*session

	// owners maps a resting order to the session that placed it, so
	// execution reports can be routed when the other side trades into
	// it. Only the command loop reads or writes it.
	owners map[book.OrderID]*restingOrder

	listener net.Listener
	t        *tomb.Tomb
}

type restingOrder struct {
	sess      *session
	remaining string
}

// feedBuffer collects book events emitted during a single operation so
// the loop can fan them out afterwards. Only the command loop uses it.
type feedBuffer struct {
	events []book.Event
}

func (f *feedBuffer) Publish(events ...book.Event) {
	f.events = append(f.events, events...)
}

func (f *feedBuffer) take() []book.Event {
	events := f.events
	f.events = nil
	return events
}

func New(cfg Config, logger zerolog.Logger) *Server {
	feed := &feedBuffer{}
	return &Server{
		cfg:      cfg,
		log:      logger.With().Str("instrument", cfg.Instrument).Logger(),
		book:     book.New(feed),
		feed:     feed,
		ser:      protocol.JSONSerializer{},
		commands: make(chan command, 128),
		sessions: make(map[string]*session),
		owners:   make(map[book.OrderID]*restingOrder),
	}
}

// Run listens and serves until ctx is cancelled or an unrecoverable
// error occurs. It blocks; the returned error is nil on clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.Info().Str("network", s.cfg.Network).Str("address", s.cfg.Address).Msg("listening")

	t, _ := tomb.WithContext(ctx)
	s.t = t

	t.Go(s.loop)
	t.Go(s.accept)
	t.Go(func() error {
		<-t.Dying()
		_ = listener.Close()
		s.closeSessions()
		return nil
	})

	err = t.Wait()
	if errors.Is(err, context.Canceled) {
		// Cancellation is the normal shutdown path.
		err = nil
	}
	s.log.Info().Msg("server stopped")
	return err
}

func (s *Server) accept() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.t.Dying():
				return nil
			default:
				return err
			}
		}
		sess := &session{id: xid.New().String(), conn: conn}
		s.addSession(sess)
		s.log.Info().Str("session", sess.id).Msg("session connected")
		s.t.Go(func() error {
			s.serveSession(sess)
			return nil
		})
	}
}

func (s *Server) serveSession(sess *session) {
	defer func() {
		s.removeSession(sess)
		sess.close()
		s.log.Info().Str("session", sess.id).Msg("session closed")
	}()
	for {
		kind, payload, err := protocol.ReadFrame(sess.conn)
		if err != nil {
			return
		}
		if kind != protocol.MsgRequest {
			s.log.Warn().Str("session", sess.id).Uint8("kind", uint8(kind)).Msg("unexpected frame kind")
			continue
		}
		var req protocol.Request
		if err := s.ser.Unmarshal(payload, &req); err != nil {
			s.log.Warn().Str("session", sess.id).Err(err).Msg("bad request payload")
			continue
		}
		select {
		case s.commands <- command{sess: sess, req: req}:
		case <-s.t.Dying():
			return
		}
	}
}

func (s *Server) addSession(sess *session) {
	s.sessionMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionMu.Unlock()
}

func (s *Server) removeSession(sess *session) {
	s.sessionMu.Lock()
	delete(s.sessions, sess.id)
	s.sessionMu.Unlock()
}

func (s *Server) closeSessions() {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	for _, sess := range s.sessions {
		sess.close()
	}
}
