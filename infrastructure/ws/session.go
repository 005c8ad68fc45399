package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"streamroom/contract"
	"streamroom/domain/chat"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// session coordinates one connection through its three states:
// awaiting-join, active, terminated. Once active it runs two racing relay
// loops; whichever finishes first cancels the other, and the leave path
// then runs unconditionally.
type session struct {
	log  *slog.Logger
	chat contract.IChatService
	conn *websocket.Conn
}

func newSession(log *slog.Logger, chat contract.IChatService, conn *websocket.Conn) *session {
	return &session{log: log, chat: chat, conn: conn}
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	// The first frame is the join attempt. A decode failure here is fatal
	// to the session, unlike during the active phase.
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return
	}
	joinMsg, err := chat.Decode(data)
	if err != nil {
		s.log.Info("Rejecting connection, malformed join frame", "error", err)
		return
	}

	username := joinMsg.Username
	if username == "" {
		return
	}

	sub, replay, err := s.chat.Join(username)
	if err != nil {
		// Taken name: tell this connection only, then drop it. Any other
		// join failure terminates silently.
		_ = s.send(chat.NewUsernameTaken(username))
		return
	}
	s.log.Info("Connected", "username", username)

	// Leave is unconditional once the join succeeded, whatever ends the
	// session.
	defer s.chat.Leave(username, sub)

	// Replay history before any live traffic. Individual send failures
	// are logged and skipped; the live loops will surface a dead peer.
	for _, msg := range replay {
		if err := s.send(msg); err != nil {
			s.log.Info("Failed to send history entry", "username", username, "error", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The inbound loop blocks in ReadMessage, which is not context-aware:
	// closing the connection is what unblocks it when the outbound loop
	// finishes first (or the server shuts down).
	go func() {
		<-loopCtx.Done()
		s.conn.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.outboundLoop(loopCtx, sub.Events(), username)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.inboundLoop(username)
	}()
	wg.Wait()
}

// outboundLoop forwards every bus delivery to the peer, in order, and
// keeps the connection alive with periodic pings. It returns on the first
// send failure, on subscription close, or on cancellation.
func (s *session) outboundLoop(ctx context.Context, events <-chan chat.Message, username string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				// Evicted from the bus.
				return
			}
			if err := s.send(msg); err != nil {
				s.log.Info("Outbound send failed", "username", username, "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// inboundLoop publishes every well-formed frame from the peer to the bus,
// verbatim. Decode failures are dropped and the loop continues; the loop
// ends when the connection closes or errors.
func (s *session) inboundLoop(username string) {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Info("Connection dropped", "username", username, "error", err)
			}
			return
		}
		msg, err := chat.Decode(data)
		if err != nil {
			s.log.Debug("Dropping malformed frame", "username", username, "error", err)
			continue
		}
		s.chat.Publish(msg)
	}
}

func (s *session) send(msg chat.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
