package services

import (
	"streamroom/domain/chat"
	"streamroom/errors"
	"streamroom/observability"
	"streamroom/runtime"
)

// ChatService wires the registry, history and bus together. Sessions go
// through it instead of touching the shared state directly, which keeps
// the join/leave ordering rules in one place.
type ChatService struct {
	registry *runtime.Registry
	history  *runtime.History
	bus      *runtime.Bus
	stats    *observability.Monitor
}

func NewChatService(registry *runtime.Registry, history *runtime.History,
	bus *runtime.Bus, stats *observability.Monitor) *ChatService {
	return &ChatService{registry: registry, history: history, bus: bus, stats: stats}
}

// Join claims the username, snapshots the history for replay, subscribes
// to the bus and announces the arrival. The subscription is created before
// the Join broadcast, so the new session receives its own announcement
// like every other subscriber.
func (s *ChatService) Join(username string) (*runtime.Subscription, []chat.Message, error) {
	if username == "" {
		return nil, nil, errors.ErrEmptyUsername
	}
	if !s.registry.TryJoin(username) {
		return nil, nil, errors.ErrUsernameTaken
	}

	replay := s.history.Snapshot()
	sub := s.bus.Subscribe()
	s.Publish(chat.NewJoin(username))
	s.stats.SessionJoined()
	return sub, replay, nil
}

// Leave runs the unconditional termination path: announce the departure,
// drop the subscription, release the name.
func (s *ChatService) Leave(username string, sub *runtime.Subscription) {
	s.Publish(chat.NewLeave(username))
	s.bus.Unsubscribe(sub)
	s.registry.Leave(username)
	s.stats.SessionLeft()
}

// Publish records the message in the history ring and fans it out.
func (s *ChatService) Publish(msg chat.Message) {
	s.history.Append(msg)
	s.bus.Publish(msg)
	s.stats.MessageRelayed()
}

// Participants lists the active usernames, sorted.
func (s *ChatService) Participants() []string {
	return s.registry.Usernames()
}
