package broadcast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/session"
)

type recordingConn struct {
	mu   sync.Mutex
	sent []uint16
	err  error
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msgID)
	return nil
}
func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(interval time.Duration)  {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func (c *recordingConn) messages() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.sent...)
}

type fixture struct {
	rooms     *room.Manager
	directory *player.Directory
	sessions  *session.Manager
	b         *RoomBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rooms:     room.NewRoomManager(),
		directory: player.NewDirectory(),
		sessions:  session.NewManager(),
	}
	f.b = NewRoomBroadcaster(f.rooms, f.directory, f.sessions)
	return f
}

func (f *fixture) connect(playerID string) (*player.Player, *recordingConn) {
	conn := &recordingConn{}
	sessionID := "sess-" + playerID
	f.sessions.Add(session.NewSession(sessionID, conn))
	p, _ := f.directory.Login(playerID, playerID, sessionID)
	return p, conn
}

func TestBroadcastToRoom_SkipsDisconnectedMembers(t *testing.T) {
	f := newFixture(t)
	r := f.rooms.CreateRoom(room.Options{}, f.b)

	alice, aliceConn := f.connect("alice")
	bob, bobConn := f.connect("bob")
	r.AddPlayer(alice)
	r.AddPlayer(bob)
	f.directory.MarkDisconnected("sess-bob")

	require.NoError(t, f.b.BroadcastToRoom(r.Code, network.MsgTypeGameUpdated, []byte(`{}`)))
	assert.Equal(t, []uint16{network.MsgTypeGameUpdated}, aliceConn.messages())
	assert.Empty(t, bobConn.messages())
}

func TestBroadcastToRoom_UnknownRoom(t *testing.T) {
	f := newFixture(t)
	err := f.b.BroadcastToRoom("000000", network.MsgTypeGameUpdated, nil)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestBroadcastToRoom_SendFailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	r := f.rooms.CreateRoom(room.Options{}, f.b)

	alice, aliceConn := f.connect("alice")
	bob, bobConn := f.connect("bob")
	aliceConn.err = errors.New("broken pipe")
	r.AddPlayer(alice)
	r.AddPlayer(bob)

	require.NoError(t, f.b.BroadcastToRoom(r.Code, network.MsgTypeGameUpdated, nil))
	assert.Equal(t, []uint16{network.MsgTypeGameUpdated}, bobConn.messages())
}

func TestSendToPlayer_FollowsReconnect(t *testing.T) {
	f := newFixture(t)
	_, oldConn := f.connect("alice")

	newConn := &recordingConn{}
	f.sessions.Add(session.NewSession("sess-alice-2", newConn))
	f.directory.Login("alice", "", "sess-alice-2")

	require.NoError(t, f.b.SendToPlayer("alice", network.MsgTypeLoggedIn, nil))
	assert.Empty(t, oldConn.messages())
	assert.Equal(t, []uint16{network.MsgTypeLoggedIn}, newConn.messages())
}

func TestSendToPlayer_Errors(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.b.SendToPlayer("ghost", network.MsgTypeLoggedIn, nil), ErrPlayerNotFound)

	f.connect("alice")
	f.sessions.Remove("sess-alice")
	assert.ErrorIs(t, f.b.SendToPlayer("alice", network.MsgTypeLoggedIn, nil), ErrNoSession)
}

func TestBroadcastToAll(t *testing.T) {
	f := newFixture(t)
	_, aliceConn := f.connect("alice")
	anon := &recordingConn{}
	f.sessions.Add(session.NewSession("anon", anon))

	require.NoError(t, f.b.BroadcastToAll(network.MsgTypeRolesData, nil))
	assert.Len(t, aliceConn.messages(), 1)
	assert.Len(t, anon.messages(), 1)
}
