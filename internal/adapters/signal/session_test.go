package signal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/app/orch"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/core/mocks"
	"github.com/dkeye/chatsync/internal/domain"
	"github.com/dkeye/chatsync/internal/protocol"
)

type roomsView = map[domain.RoomName]map[domain.SessionID]string

// chatServer accepts one client and hands its server-side socket to the test.
type chatServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	cs := &chatServer{conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.conns <- c
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) dialer() WSDialer {
	return WSDialer{URL: "ws" + strings.TrimPrefix(cs.srv.URL, "http")}
}

func (cs *chatServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-cs.conns:
		t.Cleanup(func() { _ = c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := c.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	return string(data)
}

func push(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func newOrch(t *testing.T, name string) *orch.Orchestrator {
	t.Helper()
	o := orch.New(domain.Identity{Name: name}, app.DefaultToastTimeouts())
	t.Cleanup(o.Toasts.Close)
	return o
}

func waitState(t *testing.T, s *Session, want core.ConnState) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, 2*time.Second, 5*time.Millisecond,
		"state is %s, want %s", s.State(), want)
}

func TestSession_LifecycleAgainstServer(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "s1")
	s := NewSession(cs.dialer(), o, Options{})

	req.Equal(core.Disconnected, s.State())
	req.NoError(s.Start(context.Background()))
	server := cs.accept(t)

	// Given the client announced itself and seeded the default room
	req.Equal(protocol.Announcement, readText(t, server))
	req.Equal(core.Open, s.State())
	req.Equal(roomsView{domain.DefaultRoom: {}}, o.Rooms.Snapshot())

	// When the server pushes membership events
	push(t, server, `list:{"general":{}}`)
	push(t, server, `join_room:{"session_id":"s1","name":"Alice","room":"general"}`)
	push(t, server, `update_name:{"session_id":"s1","name":"Ally","old_name":"Alice"}`)

	// Then the registry follows them in order
	req.Eventually(func() bool {
		snap := o.Rooms.Snapshot()
		return snap["general"]["s1"] == "Ally"
	}, 2*time.Second, 5*time.Millisecond)
	req.Equal(roomsView{"general": {"s1": "Ally"}}, o.Rooms.Snapshot())

	push(t, server, `quit_room:{"session_id":"s1","name":"Ally","room":"general"}`)
	req.Eventually(func() bool { return len(o.Rooms.Snapshot()) == 0 }, 2*time.Second, 5*time.Millisecond)

	// When the user closes the connection
	s.Close()
	req.Equal(core.Closed, s.State())
	select {
	case <-s.Done():
	default:
		req.Fail("done not closed")
	}
	req.ErrorIs(s.Start(context.Background()), domain.ErrAlreadyStarted)
}

func TestSession_ChatMessageToastsOnlyWhenDialogClosed(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	req.NoError(s.Start(context.Background()))
	defer s.Close()
	server := cs.accept(t)
	readText(t, server)

	push(t, server, `message:{"id":1,"room":"general","from_id":"s2","from_name":"Bob","content":"one","time":"t1"}`)
	req.Eventually(func() bool { return o.History.Len("general") == 1 }, 2*time.Second, 5*time.Millisecond)
	req.Len(o.Toasts.List(), 1)

	o.OpenDialog("general")
	push(t, server, `message:{"id":2,"room":"general","from_id":"s2","from_name":"Bob","content":"two","time":"t2"}`)
	req.Eventually(func() bool { return o.History.Len("general") == 2 }, 2*time.Second, 5*time.Millisecond)
	req.Len(o.Toasts.List(), 1)
}

func TestSession_BadFrameIsDroppedAndLoopContinues(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	req.NoError(s.Start(context.Background()))
	defer s.Close()
	server := cs.accept(t)
	readText(t, server)

	push(t, server, `list:{"general":`)
	push(t, server, `typing:{"room":"general"}`)
	push(t, server, `message:{"id":3,"room":"general","content":"still here"}`)

	req.Eventually(func() bool { return o.History.Len("general") == 1 }, 2*time.Second, 5*time.Millisecond)
	req.Equal(core.Open, s.State())
	req.Equal(roomsView{domain.DefaultRoom: {}}, o.Rooms.Snapshot())
}

func TestSession_SendWritesPlainTextAndAppendsOwn(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	req.NoError(s.Start(context.Background()))
	defer s.Close()
	server := cs.accept(t)
	readText(t, server)

	msg, err := s.Send(context.Background(), "general", "hi")
	req.NoError(err)
	req.True(msg.IsOwn)
	req.Equal("hi", readText(t, server))

	history := o.History.Read("general")
	req.Len(history, 1)
	req.Equal("hi", history[0].Content)
	req.True(history[0].IsOwn)
	req.Equal("me", history[0].SenderName)
}

func TestSession_ServerCloseEndsInClosed(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	req.NoError(s.Start(context.Background()))
	server := cs.accept(t)
	readText(t, server)

	req.NoError(server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second)))

	waitState(t, s, core.Closed)
	<-s.Done()
	toasts := o.Toasts.List()
	req.Len(toasts, 1)
	req.Equal(app.KindInfo, toasts[0].Kind)
}

func TestSession_TransportLossEndsInDisconnected(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	req.NoError(s.Start(context.Background()))
	server := cs.accept(t)
	readText(t, server)

	// no close handshake, just drop the socket
	req.NoError(server.UnderlyingConn().Close())

	waitState(t, s, core.Disconnected)
	<-s.Done()
	toasts := o.Toasts.List()
	req.Len(toasts, 1)
	req.Equal(app.KindError, toasts[0].Kind)

	_, err := s.Send(context.Background(), "general", "hi")
	req.ErrorIs(err, domain.ErrNotConnected)
	req.Zero(o.History.Len("general"))
}

func TestSession_ContextCancelClosesConnection(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	req.NoError(s.Start(ctx))
	server := cs.accept(t)
	readText(t, server)

	cancel()
	waitState(t, s, core.Closed)
}

func TestSession_DialFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(ctrl)
	o := newOrch(t, "me")
	s := NewSession(dialer, o, Options{})

	// Given the endpoint is unreachable
	dialer.EXPECT().Dial(gomock.Any()).Return(nil, errors.New("connection refused")).Times(1)

	// When the session starts
	err := s.Start(context.Background())

	// Then a transport error surfaces and nothing retries
	var terr *domain.TransportError
	req.True(errors.As(err, &terr))
	req.Equal("dial", terr.Op)
	req.Equal(core.Disconnected, s.State())
	req.Len(o.Toasts.List(), 1)
	<-s.Done()
	req.ErrorIs(s.Start(context.Background()), domain.ErrAlreadyStarted)
}

func TestSession_SendWhileDisconnected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	s := NewSession(mocks.NewMockDialer(ctrl), newOrch(t, "me"), Options{})

	_, err := s.Send(context.Background(), "general", "hi")

	var serr *domain.SendError
	req.True(errors.As(err, &serr))
	req.ErrorIs(err, domain.ErrNotConnected)
	req.Equal(domain.RoomName("general"), serr.Room)
	req.Zero(s.Orch.History.Len("general"))
}

func TestSession_SendValidation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	s := NewSession(mocks.NewMockDialer(ctrl), newOrch(t, "me"), Options{})

	_, err := s.Send(context.Background(), "general", "")
	req.ErrorIs(err, domain.ErrEmptyMessage)
	_, err = s.Send(context.Background(), "", "hi")
	req.ErrorIs(err, domain.ErrRoomEmpty)
}

func TestSession_SendFailureKeepsLoopRunning(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dialer := mocks.NewMockDialer(ctrl)
	conn := mocks.NewMockWSConn(ctrl)
	o := newOrch(t, "me")
	s := NewSession(dialer, o, Options{ReadLimit: 1024})

	release := make(chan struct{})
	dialer.EXPECT().Dial(gomock.Any()).Return(conn, nil)
	conn.EXPECT().SetReadLimit(int64(1024))
	conn.EXPECT().SetWriteDeadline(gomock.Any()).Return(nil).AnyTimes()
	// Given the announcement goes through but the chat frame fails
	gomock.InOrder(
		conn.EXPECT().WriteMessage(websocket.TextMessage, []byte(protocol.Announcement)).Return(nil),
		conn.EXPECT().WriteMessage(websocket.TextMessage, []byte("hi")).Return(errors.New("broken pipe")),
	)
	conn.EXPECT().ReadMessage().DoAndReturn(func() (int, []byte, error) {
		<-release
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	})
	conn.EXPECT().WriteControl(websocket.CloseMessage, gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	var once sync.Once
	conn.EXPECT().Close().DoAndReturn(func() error {
		once.Do(func() { close(release) })
		return nil
	}).AnyTimes()

	req.NoError(s.Start(context.Background()))

	// When the send fails
	_, err := s.Send(context.Background(), "general", "hi")

	// Then it is a SendError, nothing is appended and the connection stays open
	var serr *domain.SendError
	req.True(errors.As(err, &serr))
	req.Zero(o.History.Len("general"))
	req.Equal(core.Open, s.State())
	toasts := o.Toasts.List()
	req.Len(toasts, 1)
	req.Equal(app.KindError, toasts[0].Kind)

	s.Close()
	req.Equal(core.Closed, s.State())
}

func TestSession_SendRateLimited(t *testing.T) {
	req := require.New(t)
	cs := newChatServer(t)
	o := newOrch(t, "me")
	s := NewSession(cs.dialer(), o, Options{SendLimit: 1, SendInterval: time.Hour})
	req.NoError(s.Start(context.Background()))
	defer s.Close()
	server := cs.accept(t)
	readText(t, server)

	_, err := s.Send(context.Background(), "general", "first")
	req.NoError(err)
	req.Equal("first", readText(t, server))

	_, err = s.Send(context.Background(), "general", "second")
	req.ErrorIs(err, domain.ErrRateLimited)
	req.Equal(1, o.History.Len("general"))
	req.Equal(core.Open, s.State())
}
