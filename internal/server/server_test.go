package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/config"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/game"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

const adminPassword = "open-sesame"

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Config{
		Server: config.ServerConfig{
			WriteTimeout: 5 * time.Second,
			PongTimeout:  time.Minute,
			SendBuffer:   64,
		},
		Auth: config.AuthConfig{AdminPasswordHash: string(hash)},
	}
	hub := NewHub(cfg, nil, zaptest.NewLogger(t))
	ts := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Shutdown()
		ts.Close()
	})
	return hub, ts
}

func createGame(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	body, err := json.Marshal(createGameRequest{
		ID: id,
		Users: []*game.User{
			{ID: "u1", Name: "Alice"},
			{ID: "u2", Name: "Bob"},
			{ID: "u3", Name: "Carol"},
		},
		Assignments: map[string]string{
			"u1": "lannister",
			"u2": "stark",
			"u3": "baratheon",
		},
	})
	require.NoError(t, err)
	resp, err := ts.Client().Post(ts.URL+"/games", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server, gameID, userID, password string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=" + gameID + "&user=" + userID
	if password != "" {
		url += "&password=" + password
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *message.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg message.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

// readSnapshot reads the full-game snapshot every client receives on
// attach and builds a replica from it.
func readSnapshot(t *testing.T, conn *websocket.Conn) *game.EntireGame {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, message.ServerGameStateChange, msg.Type)
	replica, err := game.ClientGameFromSnapshot(msg.State, zaptest.NewLogger(t))
	require.NoError(t, err)
	return replica
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(msg))
}

func TestGameOverWebsocket(t *testing.T) {
	_, ts := newTestServer(t)
	createGame(t, ts, "ws-game")

	alice := dialWS(t, ts, "ws-game", "u1", "")
	bob := dialWS(t, ts, "ws-game", "u2", "")

	aliceReplica := readSnapshot(t, alice)
	bobReplica := readSnapshot(t, bob)
	require.Equal(t, "ws-game", aliceReplica.ID)
	require.Equal(t, 1, bobReplica.Ingame.Game().Round)

	// Alice places an order; she gets the confirmation with the order
	// id, bob only learns a face-down token appeared.
	send(t, alice, &message.ClientMessage{
		Type:     message.ClientPlaceOrder,
		RegionID: "lannisport",
		OrderID:  intPtr(3),
	})

	toAlice := readMessage(t, alice)
	require.Equal(t, message.ServerOrderPlaced, toAlice.Type)
	require.NotNil(t, toAlice.OrderID)
	assert.Equal(t, 3, *toAlice.OrderID)

	toBob := readMessage(t, bob)
	require.Equal(t, message.ServerOrderPlaced, toBob.Type)
	assert.Nil(t, toBob.OrderID)

	require.NoError(t, aliceReplica.ApplyServerMessage(toAlice))
	require.NoError(t, bobReplica.ApplyServerMessage(toBob))
}

func TestResyncDeliversFreshSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	createGame(t, ts, "resync-game")

	alice := dialWS(t, ts, "resync-game", "u1", "")
	readSnapshot(t, alice)

	send(t, alice, &message.ClientMessage{
		Type:     message.ClientPlaceOrder,
		RegionID: "lannisport",
		OrderID:  intPtr(1),
	})
	readMessage(t, alice) // order confirmation

	send(t, alice, map[string]string{"type": "resync"})
	replica := readSnapshot(t, alice)

	planning, ok := replica.Ingame.ChildGameState().(*game.Planning)
	require.True(t, ok)
	order, placed := planning.PlacedOrder("lannisport")
	require.True(t, placed)
	require.NotNil(t, order)
	assert.Equal(t, 1, order.ID)
}

func TestAdminAuthentication(t *testing.T) {
	_, ts := newTestServer(t)
	createGame(t, ts, "auth-game")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=auth-game&user=u1&password=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := dialWS(t, ts, "auth-game", "observer", adminPassword)
	readSnapshot(t, admin)
}

func TestReplayEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	createGame(t, ts, "replay-game")

	alice := dialWS(t, ts, "replay-game", "u1", "")
	readSnapshot(t, alice)
	send(t, alice, &message.ClientMessage{
		Type:     message.ClientPlaceOrder,
		RegionID: "the-reach",
		OrderID:  intPtr(8),
	})
	readMessage(t, alice)
	// The resync round-trip guarantees the previous message has fully
	// settled, including its replay record.
	send(t, alice, map[string]string{"type": "resync"})
	readSnapshot(t, alice)

	resp, err := ts.Client().Get(ts.URL + "/games/replay-game/replay?password=" + adminPassword)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var states []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&states))
	assert.Len(t, states, 2)

	forbidden, err := ts.Client().Get(ts.URL + "/games/replay-game/replay")
	require.NoError(t, err)
	defer forbidden.Body.Close()
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)
}

func TestCreateGameValidation(t *testing.T) {
	_, ts := newTestServer(t)
	createGame(t, ts, "dup-game")

	// Duplicate id.
	body, _ := json.Marshal(createGameRequest{
		ID:          "dup-game",
		Users:       []*game.User{{ID: "u1", Name: "Alice"}},
		Assignments: map[string]string{"u1": "lannister"},
	})
	resp, err := ts.Client().Post(ts.URL+"/games", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unassigned houses are a setup error.
	body, _ = json.Marshal(createGameRequest{
		ID:          "half-game",
		Users:       []*game.User{{ID: "u1", Name: "Alice"}},
		Assignments: map[string]string{"u1": "lannister"},
	})
	resp, err = ts.Client().Post(ts.URL+"/games", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown games can't be joined.
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=nope&user=u1"
	_, wsResp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, wsResp)
	assert.Equal(t, http.StatusNotFound, wsResp.StatusCode)
}

func intPtr(v int) *int { return &v }
