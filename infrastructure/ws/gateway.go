// Package ws bridges websocket connections to the chat service. The
// gateway upgrades inbound requests; each connection is driven by a
// session owning the join handshake, the history replay and the two relay
// loops.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"streamroom/contract"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The surrounding HTTP layer gates access with the shared secret;
	// the relay itself accepts any origin that reached it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway is a stateless dispatcher: one session per upgraded connection,
// all sessions sharing the chat service handed in at construction. It
// imposes no connection limit.
type Gateway struct {
	log  *slog.Logger
	chat contract.IChatService
}

func NewGateway(log *slog.Logger, chat contract.IChatService) *Gateway {
	return &Gateway{log: log, chat: chat}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	// Run the session to completion on the handler goroutine. Session
	// failures terminate only this connection, never the gateway.
	newSession(g.log, g.chat, conn).run(r.Context())
}
