package ws

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"streamroom/domain/chat"
	"streamroom/observability"
	"streamroom/runtime"
	"streamroom/services"
)

const frameWait = 2 * time.Second

func newTestServer(t *testing.T) (*httptest.Server, *runtime.Registry) {
	t.Helper()
	log := slog.Default()
	registry := runtime.NewRegistry()
	service := services.NewChatService(
		registry,
		runtime.NewHistory(25),
		runtime.NewBus(log, 16),
		observability.NewMonitor(log),
	)
	srv := httptest.NewServer(NewGateway(log, service))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendRaw(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func send(t *testing.T, conn *websocket.Conn, msg chat.Message) {
	t.Helper()
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readMessage(t *testing.T, conn *websocket.Conn) chat.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(frameWait)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := chat.Decode(data)
	require.NoError(t, err)
	return msg
}

// readUntil drains frames until one matches the kind and username, failing
// on timeout. Used where unrelated live traffic may precede the expected
// frame.
func readUntil(t *testing.T, conn *websocket.Conn, kind chat.Kind, username string) chat.Message {
	t.Helper()
	deadline := time.Now().Add(frameWait)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Kind == kind && msg.Username == username {
			return msg
		}
	}
	t.Fatalf("no %s frame for %s before deadline", kind, username)
	return chat.Message{}
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func join(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	send(t, conn, chat.NewJoin(username))
	msg := readUntil(t, conn, chat.KindJoin, username)
	require.Equal(t, username, msg.Username)
}

func TestSession_JoinReplaysHistoryThenGoesQuiet(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	// When alice joins an empty room
	send(t, conn, chat.NewJoin("alice"))

	// Then the only traffic is her own join announcement (empty history,
	// bus echoes to the sender), followed by silence
	msg := readMessage(t, conn)
	require.Equal(t, chat.KindJoin, msg.Kind)
	require.Equal(t, "alice", msg.Username)
	expectSilence(t, conn)
}

func TestSession_SecondJoinWithTakenNameIsRefused(t *testing.T) {
	req := require.New(t)
	srv, registry := newTestServer(t)

	first := dial(t, srv)
	join(t, first, "alice")

	// When a second client claims the same name
	second := dial(t, srv)
	send(t, second, chat.NewJoin("alice"))

	// Then only that client gets a username_taken reply and is dropped
	msg := readMessage(t, second)
	req.Equal(chat.KindUsernameTaken, msg.Kind)
	req.Equal("alice", msg.Username)

	req.NoError(second.SetReadDeadline(time.Now().Add(frameWait)))
	_, _, err := second.ReadMessage()
	req.Error(err)

	// And the first session is unaffected
	req.True(registry.Active("alice"))
	send(t, first, chat.NewText("alice", "still here"))
	reply := readUntil(t, first, chat.KindText, "alice")
	req.Equal("still here", reply.Content)
}

func TestSession_TextFansOutToEveryParticipant(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "alice")
	bob := dial(t, srv)
	join(t, bob, "bob")

	// When alice sends a text
	send(t, alice, chat.NewText("alice", "hi"))

	// Then bob receives the identical message and alice gets the echo
	got := readUntil(t, bob, chat.KindText, "alice")
	req.Equal("hi", got.Content)
	echo := readUntil(t, alice, chat.KindText, "alice")
	req.Equal("hi", echo.Content)
}

func TestSession_NewJoinerReceivesHistoryReplayInOrder(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "alice")
	send(t, alice, chat.NewText("alice", "first"))
	send(t, alice, chat.NewText("alice", "second"))
	readUntil(t, alice, chat.KindText, "alice")
	readUntil(t, alice, chat.KindText, "alice")

	// When bob joins after the traffic above
	bob := dial(t, srv)
	send(t, bob, chat.NewJoin("bob"))

	// Then he first receives the replay, oldest first
	req.Equal(chat.KindJoin, readMessage(t, bob).Kind)
	first := readMessage(t, bob)
	req.Equal("first", first.Content)
	second := readMessage(t, bob)
	req.Equal("second", second.Content)

	// And then his own join announcement from the live stream
	own := readMessage(t, bob)
	req.Equal(chat.KindJoin, own.Kind)
	req.Equal("bob", own.Username)
}

func TestSession_AbruptDisconnectPublishesLeaveAndFreesName(t *testing.T) {
	req := require.New(t)
	srv, registry := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "alice")
	bob := dial(t, srv)
	join(t, bob, "bob")

	// When alice's connection drops without a close handshake
	req.NoError(alice.Close())

	// Then bob observes her leave within bounded time
	leave := readUntil(t, bob, chat.KindLeave, "alice")
	req.Equal("alice", leave.Username)

	// And the name becomes joinable again
	require.Eventually(t, func() bool { return !registry.Active("alice") },
		frameWait, 10*time.Millisecond)
	alice2 := dial(t, srv)
	join(t, alice2, "alice")
}

func TestSession_MalformedJoinFrameTerminates(t *testing.T) {
	req := require.New(t)
	srv, registry := newTestServer(t)
	conn := dial(t, srv)

	// When the first frame does not decode
	sendRaw(t, conn, `{"type":"dance","username":"alice"}`)

	// Then the connection is closed with no broadcast and no registration
	req.NoError(conn.SetReadDeadline(time.Now().Add(frameWait)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.Zero(registry.Count())
}

func TestSession_EmptyUsernameJoinTerminatesSilently(t *testing.T) {
	req := require.New(t)
	srv, registry := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, chat.NewJoin(""))

	req.NoError(conn.SetReadDeadline(time.Now().Add(frameWait)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.Zero(registry.Count())
}

func TestSession_MalformedFrameDuringActivePhaseIsDropped(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "alice")
	bob := dial(t, srv)
	join(t, bob, "bob")

	// When alice sends garbage and then a valid text
	sendRaw(t, alice, `{"type":"text","username":"alice"}`)
	send(t, alice, chat.NewText("alice", "after the garbage"))

	// Then the garbage was dropped and the session kept relaying
	got := readUntil(t, bob, chat.KindText, "alice")
	req.Equal("after the garbage", got.Content)
}

func TestSession_ForwardsSenderAssertedUsernameVerbatim(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)

	alice := dial(t, srv)
	join(t, alice, "alice")
	bob := dial(t, srv)
	join(t, bob, "bob")

	// Identity beyond the join handshake is not validated: a text frame
	// claiming another name is forwarded as-is.
	send(t, alice, chat.NewText("mallory", "impersonation"))
	got := readUntil(t, bob, chat.KindText, "mallory")
	req.Equal("impersonation", got.Content)
}
