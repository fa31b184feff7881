package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sforrego/mtgkingdoms-backend/broadcast"
	"github.com/Sforrego/mtgkingdoms-backend/game"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/services"
	"github.com/Sforrego/mtgkingdoms-backend/session"
)

type nopRecorder struct{}

func (nopRecorder) RecordCompletedGame(context.Context, models.GameSummary) error   { return nil }
func (nopRecorder) RecordPlayerOutcome(context.Context, models.PlayerOutcome) error { return nil }

type emptyStore struct{}

func (emptyStore) ListPlayerOutcomes(context.Context, string) ([]models.PlayerOutcome, error) {
	return nil, nil
}

func newTestServer(t *testing.T, opts Options) (*GameServer, *httptest.Server) {
	t.Helper()
	pool := []models.Role{
		{Name: "Monarch", Type: models.RoleTypeMonarch, RevealMode: models.RevealRevealed, StartsRevealed: true},
		{Name: "Knight", Type: models.RoleTypeKnight, RevealMode: models.RevealBoth},
		{Name: "Bandit", Type: models.RoleTypeBandit, RevealMode: models.RevealBoth},
	}
	rooms := room.NewRoomManager()
	directory := player.NewDirectory()
	sessions := session.NewManager()
	b := broadcast.NewRoomBroadcaster(rooms, directory, sessions)
	engine := game.NewEngine(rooms, directory, roles.NewCatalog(pool), nopRecorder{}, b, nil, game.Options{})

	s := NewGameServer(opts, engine, sessions, services.NewPlayerService(emptyStore{}), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgID uint16, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	packet, err := network.EncodePacket(msgID, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, packet))
}

// readUntil skips frames until one with msgID arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgID uint16) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, message, err := conn.ReadMessage()
		require.NoError(t, err)
		packet, err := network.DecodePacket(message)
		require.NoError(t, err)
		if packet.MsgID == msgID {
			return packet.Data
		}
	}
}

func login(t *testing.T, conn *websocket.Conn, playerID string) {
	t.Helper()
	send(t, conn, network.MsgTypeLogin, models.LoginRequest{PlayerID: playerID, DisplayName: strings.ToUpper(playerID)})
	var loggedIn game.LoggedIn
	require.NoError(t, json.Unmarshal(readUntil(t, conn, network.MsgTypeLoggedIn), &loggedIn))
	require.Equal(t, playerID, loggedIn.PlayerID)
}

func errorMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var msg models.ErrorMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, network.MsgTypeError), &msg))
	return msg.Message
}

func TestServer_IntentBeforeLoginIsRejected(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)

	send(t, conn, network.MsgTypeCreateRoom, models.CreateRoomRequest{})
	assert.Contains(t, errorMessage(t, conn), "not logged in")
}

func TestServer_CreateAndJoinRoom(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	alice := dial(t, ts)
	bob := dial(t, ts)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, alice, network.MsgTypeCreateRoom, models.CreateRoomRequest{PlayerID: "alice"})
	var created game.RoomView
	require.NoError(t, json.Unmarshal(readUntil(t, alice, network.MsgTypeRoomCreated), &created))
	require.Len(t, created.RoomCode, 6)

	send(t, bob, network.MsgTypeJoinRoom, models.JoinRoomRequest{PlayerID: "bob", RoomCode: created.RoomCode})
	var joined game.RoomView
	require.NoError(t, json.Unmarshal(readUntil(t, bob, network.MsgTypeJoinedRoom), &joined))
	assert.Len(t, joined.Players, 2)

	var update game.RoomView
	require.NoError(t, json.Unmarshal(readUntil(t, alice, network.MsgTypeUserJoinedRoom), &update))
	assert.Len(t, update.Players, 2)
}

func TestServer_PayloadForAnotherPlayerIsRejected(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	login(t, conn, "alice")

	send(t, conn, network.MsgTypeJoinRoom, models.JoinRoomRequest{PlayerID: "mallory", RoomCode: "000000"})
	assert.Equal(t, ErrWrongPlayer.Error(), errorMessage(t, conn))
}

func TestServer_ErrorsGoOnlyToOriginator(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	alice := dial(t, ts)
	bob := dial(t, ts)
	login(t, alice, "alice")
	login(t, bob, "bob")

	send(t, bob, network.MsgTypeJoinRoom, models.JoinRoomRequest{RoomCode: "000000"})
	assert.Contains(t, errorMessage(t, bob), "room does not exist")

	send(t, alice, network.MsgTypeGetRoles, nil)
	data := readUntil(t, alice, network.MsgTypeRolesData)
	assert.NotContains(t, string(data), "room does not exist")
}

func TestServer_GetRolesAndStats(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)

	send(t, conn, network.MsgTypeGetRoles, nil)
	var rolesData game.RolesData
	require.NoError(t, json.Unmarshal(readUntil(t, conn, network.MsgTypeRolesData), &rolesData))
	assert.Len(t, rolesData.Roles, 3)

	login(t, conn, "alice")
	send(t, conn, network.MsgTypeGetStats, models.GetStatsRequest{})
	var stats models.PlayerStats
	require.NoError(t, json.Unmarshal(readUntil(t, conn, network.MsgTypeStatsData), &stats))
	assert.Equal(t, "alice", stats.PlayerID)
	assert.Zero(t, stats.AllTime.GamesPlayed)
}

func TestServer_SecondLoginClosesFirstSession(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	first := dial(t, ts)
	login(t, first, "alice")

	second := dial(t, ts)
	login(t, second, "alice")

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	p, ok := s.engine.Directory().Get("alice")
	require.True(t, ok)
	assert.True(t, p.IsConnected())
}

func TestServer_MalformedPayload(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	login(t, conn, "alice")

	packet, err := network.EncodePacket(network.MsgTypeJoinRoom, []byte("{not json"))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, packet))
	assert.Contains(t, errorMessage(t, conn), "malformed payload")
}

func TestServer_CheckOrigin(t *testing.T) {
	s := NewGameServer(Options{AllowedOrigins: []string{"http://localhost:3000"}}, nil, session.NewManager(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, s.checkOrigin(req))
}

func TestServer_ReapStaleSessions(t *testing.T) {
	s, ts := newTestServer(t, Options{HeartbeatInterval: time.Minute})
	conn := dial(t, ts)
	login(t, conn, "alice")

	assert.Zero(t, s.ReapStaleSessions(time.Now()))
	assert.Equal(t, 1, s.ReapStaleSessions(time.Now().Add(3*time.Minute)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
