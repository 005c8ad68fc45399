// streamroom terminal chat client.
//
// Screens
// -------
//   stateJoin – centered username form (plus gate key when required)
//   stateChat – full-screen chat with scrollable message viewport
//
// Concurrency
// -----------
//   A single goroutine reads websocket frames and forwards raw bytes to
//   the frames channel. The Bubbletea event loop consumes one frame at a
//   time via waitForFrame (a tea.Cmd), queuing the next read after each
//   frame is processed.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"streamroom/auth"
	"streamroom/domain/chat"
)

var (
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")
	red    = lipgloss.Color("196")
	purple = lipgloss.Color("99")

	headerStyle = lipgloss.NewStyle().Bold(true).Background(purple).Foreground(white).Padding(0, 1)
	sysStyle    = lipgloss.NewStyle().Foreground(gray).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
	myNameStyle = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle   = lipgloss.NewStyle().Bold(true).Foreground(blue)
	hintStyle   = lipgloss.NewStyle().Foreground(gray).Italic(true)
)

type frameMsg []byte         // a raw frame arrived from the server
type disconnectedMsg struct{} // server closed the connection

type appState int

const (
	stateJoin appState = iota
	stateChat
)

type model struct {
	conn   *websocket.Conn
	frames chan []byte

	state appState
	me    string

	nameInput textinput.Model
	statusMsg string

	ready     bool
	viewport  viewport.Model
	chatInput textinput.Model
	chatLines []string

	width, height int
}

func newModel(conn *websocket.Conn, frames chan []byte) model {
	nf := textinput.New()
	nf.Placeholder = "username"
	nf.Focus()
	nf.CharLimit = 32
	nf.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 500

	return model{
		conn:      conn,
		frames:    frames,
		state:     stateJoin,
		nameInput: nf,
		chatInput: ci,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForFrame(m.frames))
}

// waitForFrame yields the next websocket frame as a tea message.
func waitForFrame(frames chan []byte) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-frames
		if !ok {
			return disconnectedMsg{}
		}
		return frameMsg(data)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case frameMsg:
		m = m.handleFrame([]byte(msg))
		return m, waitForFrame(m.frames)

	case disconnectedMsg:
		fmt.Println(sysStyle.Render("disconnected from server"))
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateJoin:
			return m.handleJoinKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

func (m model) vpHeight() int {
	// header (1) + input (1) = 2 lines reserved
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) handleJoinKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			m.statusMsg = "username cannot be empty"
			return m, nil
		}
		join := chat.NewJoin(name)
		if err := m.writeMessage(join); err != nil {
			m.statusMsg = err.Error()
			return m, tea.Quit
		}
		m.me = name
		m.state = stateChat
		m.chatInput.Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		content := strings.TrimSpace(m.chatInput.Value())
		if content == "" {
			return m, nil
		}
		if err := m.writeMessage(chat.NewText(m.me, content)); err != nil {
			return m, tea.Quit
		}
		m.chatInput.SetValue("")
		return m, nil
	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m model) handleFrame(data []byte) model {
	msg, err := chat.Decode(data)
	if err != nil {
		return m
	}

	switch msg.Kind {
	case chat.KindText:
		name := peerStyle.Render(msg.Username)
		if msg.Username == m.me {
			name = myNameStyle.Render(msg.Username)
		}
		m.appendLine(name + " " + msg.Content)
	case chat.KindJoin:
		m.appendLine(sysStyle.Render(msg.Username + " joined"))
	case chat.KindLeave:
		m.appendLine(sysStyle.Render(msg.Username + " left"))
	case chat.KindUsernameTaken:
		m.statusMsg = "username " + msg.Username + " is already taken"
	}
	return m
}

func (m *model) appendLine(line string) {
	m.chatLines = append(m.chatLines, line)
	if m.ready {
		m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m model) writeMessage(msg chat.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return m.conn.WriteMessage(websocket.TextMessage, data)
}

func (m model) View() string {
	switch m.state {
	case stateJoin:
		view := "\n  " + headerStyle.Render("streamroom") + "\n\n  " + m.nameInput.View() + "\n\n  " +
			hintStyle.Render("enter to join · esc to quit")
		if m.statusMsg != "" {
			view += "\n\n  " + errorStyle.Render(m.statusMsg)
		}
		return view
	case stateChat:
		if !m.ready {
			return "loading…"
		}
		header := headerStyle.Render("streamroom · " + m.me)
		status := ""
		if m.statusMsg != "" {
			status = "  " + errorStyle.Render(m.statusMsg)
		}
		return header + status + "\n" + m.viewport.View() + "\n" + m.chatInput.View()
	}
	return ""
}

// login posts the gate key and returns the session cookie to present on
// the websocket upgrade.
func login(baseURL, key string) (*http.Cookie, error) {
	res, err := http.PostForm(baseURL+"/v1/auth", url.Values{"key": {key}})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("gate refused the key (status %d)", res.StatusCode)
	}
	for _, cookie := range res.Cookies() {
		if cookie.Name == auth.SessionCookie {
			return cookie, nil
		}
	}
	return nil, fmt.Errorf("gate returned no session cookie")
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "server base URL")
	key := flag.String("key", "", "gate access key, when the server is gated")
	flag.Parse()

	wsURL := strings.Replace(*baseURL, "http", "ws", 1) + "/v1/ws"

	header := http.Header{}
	if *key != "" {
		cookie, err := login(*baseURL, *key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		header.Set("Cookie", cookie.Name+"="+cookie.Value)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach %s: %v\n", wsURL, err)
		os.Exit(1)
	}
	defer conn.Close()

	frames := make(chan []byte, 16)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}()

	p := tea.NewProgram(newModel(conn, frames), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "client error: %v\n", err)
		os.Exit(1)
	}
}
