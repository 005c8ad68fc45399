// Package ingest accepts the RTMP video feed. It is a collaborator of the
// chat relay, not part of it: the only shared state is the live/offline
// status exposed through the monitor. Transcoding is out of scope.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	rtmp "github.com/yutopp/go-rtmp"
	rtmpmsg "github.com/yutopp/go-rtmp/message"

	"streamroom/errors"
	"streamroom/observability"
)

// Server listens for RTMP publishers, validates the stream key and tracks
// the live state. A single publisher may be live at a time; a second
// publish attempt is rejected without affecting the current one.
type Server struct {
	log       *slog.Logger
	port      int
	streamKey string
	stats     *observability.Monitor

	mu   sync.Mutex
	live bool
}

func NewServer(log *slog.Logger, port int, streamKey string, stats *observability.Monitor) *Server {
	return &Server{log: log, port: port, streamKey: streamKey, stats: stats}
}

// Run serves RTMP until the context is cancelled. Runs under the
// supervisor like the other process-level workers.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rtmp listen on %s: %w", addr, err)
	}

	srv := rtmp.NewServer(&rtmp.ServerConfig{
		OnConnect: func(conn net.Conn) (io.ReadWriteCloser, *rtmp.ConnConfig) {
			return conn, &rtmp.ConnConfig{
				Handler: &publisherHandler{server: s, log: s.log},
				ControlState: rtmp.StreamControlStateConfig{
					DefaultBandwidthWindowSize: 6 * 1024 * 1024 / 8,
				},
			}
		},
	})

	// Closing the listener is what unblocks Serve on shutdown.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	s.log.Info("RTMP ingest listening", "addr", addr)
	if err := srv.Serve(listener); err != nil && ctx.Err() == nil {
		return fmt.Errorf("rtmp serve: %w", err)
	}
	return nil
}

// acquire claims the single live slot.
func (s *Server) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		return errors.ErrAlreadyLive
	}
	s.live = true
	return nil
}

func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = false
}

// publisherHandler drives one RTMP connection. Media payloads are drained
// and discarded: this server only gates and tracks the feed.
type publisherHandler struct {
	rtmp.DefaultHandler
	server *Server
	log    *slog.Logger

	sessionID  string
	publishing bool
}

func (h *publisherHandler) OnServe(conn *rtmp.Conn) {
	h.sessionID = uuid.NewString()
}

func (h *publisherHandler) OnConnect(timestamp uint32, cmd *rtmpmsg.NetConnectionConnect) error {
	h.log.Debug("RTMP connect", "session_id", h.sessionID, "app", cmd.Command.App)
	return nil
}

func (h *publisherHandler) OnCreateStream(timestamp uint32, cmd *rtmpmsg.NetConnectionCreateStream) error {
	return nil
}

func (h *publisherHandler) OnPublish(_ *rtmp.StreamContext, timestamp uint32, cmd *rtmpmsg.NetStreamPublish) error {
	// The publishing name carries the stream key; never log it.
	if cmd.PublishingName != h.server.streamKey {
		h.log.Warn("RTMP publish rejected, wrong stream key", "session_id", h.sessionID)
		return errors.ErrStreamKey
	}
	if err := h.server.acquire(); err != nil {
		h.log.Warn("RTMP publish rejected, already live", "session_id", h.sessionID)
		return err
	}

	h.publishing = true
	h.server.stats.StreamStarted(h.sessionID)
	h.log.Info("Stream live", "session_id", h.sessionID)
	return nil
}

func (h *publisherHandler) OnAudio(timestamp uint32, payload io.Reader) error {
	_, err := io.Copy(io.Discard, payload)
	return err
}

func (h *publisherHandler) OnVideo(timestamp uint32, payload io.Reader) error {
	_, err := io.Copy(io.Discard, payload)
	return err
}

func (h *publisherHandler) OnClose() {
	if h.publishing {
		h.publishing = false
		h.server.release()
		h.server.stats.StreamStopped()
		h.log.Info("Stream offline", "session_id", h.sessionID)
	}
}
