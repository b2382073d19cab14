package widget

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/snakeaid/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/snakeaid/backend/internal/service/chat"
	"github.com/zhouzirui/snakeaid/backend/internal/service/fallback"
	"github.com/zhouzirui/snakeaid/backend/internal/service/relay"
)

type stubTransport struct {
	mu       sync.Mutex
	reply    string
	err      error
	resetErr bool
	gate     chan struct{}
	entered  chan struct{}
}

func (s *stubTransport) Send(context.Context, string, bool) (string, error) {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	reply, err := s.reply, s.err
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return reply, err
}

func (s *stubTransport) ResetRemote(context.Context) relay.ResetResult {
	if s.resetErr {
		return relay.ResetResult{Err: &relay.RemoteResetAcknowledgeError{StatusCode: 500}}
	}
	return relay.ResetResult{Acknowledged: true}
}

func setupRouter(transport chatservice.Transport) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService(transport)
	handler := New(chatSvc)

	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)
	return r, chatSvc
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestTranscriptReturnsGreeting(t *testing.T) {
	r, _ := setupRouter(&stubTransport{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/transcript", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var snap chat.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, chat.Greeting, snap.Transcript[0].Content)
	assert.False(t, snap.AwaitingReply)
}

func TestSubmitReturnsReplyAndSnapshot(t *testing.T) {
	r, _ := setupRouter(&stubTransport{reply: "Stay calm"})

	resp := postJSON(r, "/api/messages", `{"text":"my friend was bitten"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	var body exchangeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Reply)
	assert.Equal(t, "Stay calm", body.Reply.Content)
	assert.False(t, body.Fallback)
	assert.Len(t, body.Snapshot.Transcript, 3)
}

func TestSubmitFallbackWhenResponderDown(t *testing.T) {
	r, _ := setupRouter(&stubTransport{err: &relay.TransportError{Err: errors.New("refused")}})

	resp := postJSON(r, "/api/messages", `{"text":"bitten"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	var body exchangeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Fallback)
	assert.Equal(t, fallback.FirstContactScript, body.Reply.Content)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"Malformed JSON", `{"text":`, http.StatusBadRequest},
		{"Empty text", `{"text":""}`, http.StatusBadRequest},
		{"Whitespace text", `{"text":"   "}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := setupRouter(&stubTransport{reply: "x"})
			resp := postJSON(r, "/api/messages", tt.body)
			assert.Equal(t, tt.status, resp.Code)
			assert.Len(t, svc.Snapshot().Transcript, 1)
		})
	}
}

func TestSubmitWhileAwaitingReturnsConflict(t *testing.T) {
	transport := &stubTransport{reply: "ok", gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	r, _ := setupRouter(transport)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postJSON(r, "/api/messages", `{"text":"first"}`) }()
	<-transport.entered

	resp := postJSON(r, "/api/messages", `{"text":"second"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)

	close(transport.gate)
	assert.Equal(t, http.StatusOK, (<-done).Code)
}

func TestResetReportsRemoteOutcome(t *testing.T) {
	r, svc := setupRouter(&stubTransport{reply: "ok", resetErr: true})
	_, err := svc.Submit(context.Background(), "bitten")
	require.NoError(t, err)

	resp := postJSON(r, "/api/reset", "")

	require.Equal(t, http.StatusOK, resp.Code)
	var body resetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.RemoteAcknowledged)
	assert.Len(t, body.Snapshot.Transcript, 1)
	assert.False(t, body.Snapshot.AwaitingReply)
}

func TestWebSocketSubmitAndReset(t *testing.T) {
	r, _ := setupRouter(&stubTransport{reply: "Stay calm"})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readSnapshot(t, conn)
	assert.Len(t, first.Transcript, 1)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "submit", Text: "bitten"}))
	snap := waitForSnapshot(t, conn, func(s chat.Snapshot) bool {
		return len(s.Transcript) == 3 && !s.AwaitingReply
	})
	assert.Equal(t, "Stay calm", snap.Transcript[2].Content)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "reset"}))
	waitForSnapshot(t, conn, func(s chat.Snapshot) bool {
		return len(s.Transcript) == 1 && !s.AwaitingReply
	})
}

func TestWebSocketReportsErrors(t *testing.T) {
	r, _ := setupRouter(&stubTransport{reply: "Stay calm"})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	readSnapshot(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "submit", Text: "  "}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, chatservice.ErrEmptyInput.Error(), msg.Data["error"])
}

func TestStreamSendsInitialSnapshot(t *testing.T) {
	r, _ := setupRouter(&stubTransport{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", event)

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	var snap chat.Snapshot
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &snap))
	assert.Len(t, snap.Transcript, 1)
}

func readSnapshot(t *testing.T, conn *websocket.Conn) chat.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg struct {
		Type string        `json:"type"`
		Data chat.Snapshot `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "snapshot", msg.Type)
	return msg.Data
}

func waitForSnapshot(t *testing.T, conn *websocket.Conn, done func(chat.Snapshot) bool) chat.Snapshot {
	t.Helper()
	for i := 0; i < 10; i++ {
		snap := readSnapshot(t, conn)
		if done(snap) {
			return snap
		}
	}
	t.Fatal("expected snapshot never arrived")
	return chat.Snapshot{}
}
