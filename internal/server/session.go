package server

import (
	"net"
	"sync"

	"kestrel/internal/protocol"
)

// session is one connected client. Frames are written from the command
// loop and the write path is serialized by writeMu so a session can be
// closed from its reader without racing an in-flight write.
type session struct {
	id   string
	conn net.Conn

	writeMu sync.Mutex

	// subscribed is only touched from the command loop.
	subscribed bool
}

func (s *session) write(kind protocol.MsgKind, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteFrame(s.conn, kind, payload)
}

func (s *session) close() {
	_ = s.conn.Close()
}
