package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"streamroom/domain/chat"
	"streamroom/errors"
	"streamroom/observability"
	"streamroom/runtime"
)

func newTestService() *ChatService {
	log := slog.Default()
	return NewChatService(
		runtime.NewRegistry(),
		runtime.NewHistory(25),
		runtime.NewBus(log, 16),
		observability.NewMonitor(log),
	)
}

func TestChatService_Join_AnnouncesAndEchoes(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	// When alice joins an empty room
	sub, replay, err := service.Join("alice")
	req.NoError(err)
	req.Empty(replay)

	// Then her own join announcement arrives on her subscription
	msg := <-sub.Events()
	req.Equal(chat.KindJoin, msg.Kind)
	req.Equal("alice", msg.Username)
}

func TestChatService_Join_ReplaysHistorySnapshot(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	// Given earlier traffic
	sub1, _, err := service.Join("alice")
	req.NoError(err)
	service.Publish(chat.NewText("alice", "hello"))

	// When bob joins
	_, replay, err := service.Join("bob")
	req.NoError(err)

	// Then the replay holds the traffic from before his join, in order,
	// without his own join announcement
	req.Len(replay, 2)
	req.Equal(chat.KindJoin, replay[0].Kind)
	req.Equal("hello", replay[1].Content)

	// And alice's live subscription got bob's join
	req.Equal(chat.KindJoin, (<-sub1.Events()).Kind)
	req.Equal("hello", (<-sub1.Events()).Content)
	bobJoin := <-sub1.Events()
	req.Equal(chat.KindJoin, bobJoin.Kind)
	req.Equal("bob", bobJoin.Username)
}

func TestChatService_Join_RejectsTakenName(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	_, _, err := service.Join("alice")
	req.NoError(err)

	// When a second join claims the same name
	sub, replay, err := service.Join("alice")

	// Then it is rejected without touching the first session
	req.ErrorIs(err, errors.ErrUsernameTaken)
	req.Nil(sub)
	req.Nil(replay)
}

func TestChatService_Join_RejectsEmptyName(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	_, _, err := service.Join("")
	req.ErrorIs(err, errors.ErrEmptyUsername)
}

func TestChatService_Participants_ListsJoinedNames(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	req.Empty(service.Participants())

	_, _, err := service.Join("bob")
	req.NoError(err)
	_, _, err = service.Join("alice")
	req.NoError(err)

	req.Equal([]string{"alice", "bob"}, service.Participants())
}

func TestChatService_Leave_FreesTheNameAndAnnounces(t *testing.T) {
	req := require.New(t)
	service := newTestService()

	aliceSub, _, err := service.Join("alice")
	req.NoError(err)
	bobSub, _, err := service.Join("bob")
	req.NoError(err)

	// When alice leaves
	service.Leave("alice", aliceSub)

	// Then bob observes her departure
	for {
		msg := <-bobSub.Events()
		if msg.Kind == chat.KindLeave {
			req.Equal("alice", msg.Username)
			break
		}
	}

	// And her subscription is closed
	for range aliceSub.Events() {
	}

	// And the name is joinable again
	_, _, err = service.Join("alice")
	req.NoError(err)
}
