package server

import (
	"bytes"
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/events"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/service"
	"ctchen222/tictactoe-ai/internal/token"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBody struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Extras  struct {
		Session struct {
			ID         string `json:"id"`
			Turn       string `json:"turn"`
			Difficulty string `json:"difficulty"`
			Board      struct {
				Size  int      `json:"size"`
				Cells []string `json:"cells"`
			} `json:"board"`
			Outcome struct {
				Status string `json:"status"`
				Winner string `json:"winner"`
			} `json:"outcome"`
		} `json:"session"`
		Token   string `json:"token"`
		Message string `json:"message"`
	} `json:"extras"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := events.NewLocalBroker()
	svc, err := service.NewGameService(
		repository.NewMemorySessionRepository(time.Hour),
		broker,
		bot.NewSelector(rand.NewPCG(1, 2)),
		service.Options{DefaultSize: 3, MaxSize: 5, DefaultDifficulty: bot.Hard},
	)
	require.NoError(t, err)
	return NewServer(svc, broker, token.NewIssuer("test-secret", time.Hour))
}

func do(t *testing.T, s *Server, method, path, tokenString string, body any) (int, sessionBody) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tokenString != "" {
		req.Header.Set("Authorization", "Bearer "+tokenString)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var decoded sessionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	return w.Code, decoded
}

func createSession(t *testing.T, s *Server, body any) (id, tokenString string) {
	t.Helper()
	code, resp := do(t, s, http.MethodPost, "/api/sessions", "", body)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, resp.Extras.Token)
	return resp.Extras.Session.ID, resp.Extras.Token
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"code":200,"extras":{"status":"ok"}}`, w.Body.String())
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)

	t.Run("Defaults with an empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp sessionBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 3, resp.Extras.Session.Board.Size)
		assert.Len(t, resp.Extras.Session.Board.Cells, 9)
		assert.Equal(t, "hard", resp.Extras.Session.Difficulty)
		assert.Equal(t, "X", resp.Extras.Session.Turn)
		assert.Equal(t, "in_progress", resp.Extras.Session.Outcome.Status)
	})

	t.Run("Explicit settings", func(t *testing.T) {
		code, resp := do(t, s, http.MethodPost, "/api/sessions", "", gin.H{"size": 4, "difficulty": "easy"})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, 4, resp.Extras.Session.Board.Size)
		assert.Equal(t, "easy", resp.Extras.Session.Difficulty)
	})

	t.Run("Rejected settings", func(t *testing.T) {
		code, resp := do(t, s, http.MethodPost, "/api/sessions", "", gin.H{"size": 9})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Extras.Message, "invalid board size")

		code, _ = do(t, s, http.MethodPost, "/api/sessions", "", gin.H{"difficulty": "medium"})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)
	id, tok := createSession(t, s, gin.H{"size": 3, "difficulty": "hard"})
	base := "/api/sessions/" + id

	code, resp := do(t, s, http.MethodPost, base+"/moves", tok, gin.H{"index": 4})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "X", resp.Extras.Session.Board.Cells[4])
	assert.Equal(t, "O", resp.Extras.Session.Board.Cells[0])
	assert.Equal(t, "X", resp.Extras.Session.Turn)

	code, _ = do(t, s, http.MethodPost, base+"/moves", tok, gin.H{"index": 4})
	assert.Equal(t, http.StatusBadRequest, code, "occupied cell")

	code, _ = do(t, s, http.MethodPost, base+"/moves", tok, gin.H{"index": 42})
	assert.Equal(t, http.StatusBadRequest, code, "out of range")

	code, _ = do(t, s, http.MethodPost, base+"/moves", tok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code, "missing index")

	code, resp = do(t, s, http.MethodGet, base, tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, resp.Extras.Session.ID)

	code, resp = do(t, s, http.MethodPut, base+"/difficulty", tok, gin.H{"difficulty": "easy"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "easy", resp.Extras.Session.Difficulty)

	code, _ = do(t, s, http.MethodPut, base+"/difficulty", tok, gin.H{"difficulty": "medium"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, s, http.MethodPut, base+"/size", tok, gin.H{"size": 4})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, resp.Extras.Session.Board.Size)

	code, _ = do(t, s, http.MethodPut, base+"/size", tok, gin.H{"size": 6})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, s, http.MethodPost, base+"/reset", tok, nil)
	require.Equal(t, http.StatusOK, code)
	for _, cell := range resp.Extras.Session.Board.Cells {
		assert.Empty(t, cell)
	}

	code, _ = do(t, s, http.MethodDelete, base, tok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, s, http.MethodGet, base, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGameOverConflict(t *testing.T) {
	s := newTestServer(t)
	id, tok := createSession(t, s, gin.H{"size": 1})

	code, resp := do(t, s, http.MethodPost, "/api/sessions/"+id+"/moves", tok, gin.H{"index": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "win", resp.Extras.Session.Outcome.Status)
	assert.Equal(t, "X", resp.Extras.Session.Outcome.Winner)

	code, _ = do(t, s, http.MethodPost, "/api/sessions/"+id+"/moves", tok, gin.H{"index": 0})
	assert.Equal(t, http.StatusConflict, code)
}

func TestSessionTokenRequired(t *testing.T) {
	s := newTestServer(t)
	id, tok := createSession(t, s, nil)
	otherID, otherTok := createSession(t, s, nil)
	require.NotEqual(t, id, otherID)

	code, _ := do(t, s, http.MethodGet, "/api/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodGet, "/api/sessions/"+id, "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodGet, "/api/sessions/"+id, otherTok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodGet, "/api/sessions/"+id+"?token="+tok, "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func readMessage(t *testing.T, conn *websocket.Conn) proto.ServerToClientMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg proto.ServerToClientMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket(t *testing.T) {
	s := newTestServer(t)
	id, tok := createSession(t, s, gin.H{"size": 3, "difficulty": "hard"})

	ts := httptest.NewServer(s.Engine())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + id

	t.Run("Rejects a missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	conn, _, err := websocket.DefaultDialer.DialContext(context.Background(), wsURL+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readMessage(t, conn)
	assert.Equal(t, events.TypeState, msg.Type)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "move", "index": 4}))

	var got []string
	for {
		msg = readMessage(t, conn)
		got = append(got, msg.Type)
		if msg.Type == events.TypeState {
			break
		}
	}
	assert.Equal(t, []string{events.TypeMove, events.TypeAIThinking, events.TypeMove, events.TypeState}, got)

	var state struct {
		Board struct {
			Cells []string `json:"cells"`
		} `json:"board"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, "X", state.Board.Cells[4])
	assert.Equal(t, "O", state.Board.Cells[0])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "move", "index": 4}))
	msg = readMessage(t, conn)
	assert.Equal(t, proto.TypeError, msg.Type)
	assert.Contains(t, msg.Reason, "invalid move")

	require.NoError(t, conn.WriteJSON(gin.H{"type": "move"}))
	msg = readMessage(t, conn)
	assert.Equal(t, proto.TypeError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readMessage(t, conn)
	assert.Equal(t, proto.TypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "reset"}))
	msg = readMessage(t, conn)
	assert.Equal(t, events.TypeState, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	for _, cell := range state.Board.Cells {
		assert.Empty(t, cell)
	}
}
