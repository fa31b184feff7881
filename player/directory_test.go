package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

func TestDirectory_LoginCreatesIdentity(t *testing.T) {
	d := NewDirectory()

	p, known := d.Login("alice", "Alice", "s1")
	require.False(t, known)
	assert.Equal(t, "Alice", p.DisplayName())
	assert.Equal(t, "s1", p.SessionID())
	assert.True(t, p.IsConnected())

	bySession, ok := d.BySession("s1")
	require.True(t, ok)
	assert.Same(t, p, bySession)
}

func TestDirectory_ReconnectReattachesSession(t *testing.T) {
	d := NewDirectory()
	p, _ := d.Login("alice", "Alice", "s1")
	p.SetRoomCode("123456")
	p.SetRole(models.Role{Name: "Knight", Type: models.RoleTypeKnight})

	_, ok := d.MarkDisconnected("s1")
	require.True(t, ok)
	assert.False(t, p.IsConnected())

	again, known := d.Login("alice", "", "s2")
	require.True(t, known)
	assert.Same(t, p, again)
	assert.True(t, again.IsConnected())
	assert.Equal(t, "Alice", again.DisplayName(), "empty display name keeps the old one")
	assert.Equal(t, "123456", again.RoomCode(), "disconnect must not drop history")
	assert.Equal(t, "Knight", again.AssignedRole.Name)

	_, ok = d.BySession("s1")
	assert.False(t, ok)
}

func TestDirectory_StaleSessionDisconnectIgnored(t *testing.T) {
	d := NewDirectory()
	d.Login("alice", "Alice", "s1")
	d.Login("alice", "Alice", "s2")

	_, ok := d.MarkDisconnected("s1")
	assert.False(t, ok, "the old socket closing must not take the new one offline")

	p, _ := d.Get("alice")
	assert.True(t, p.IsConnected())
	assert.Equal(t, 1, d.OnlineCount())
}

func TestPlayer_ResetRound(t *testing.T) {
	p := New("bob", "Bob")
	p.SetRole(models.Role{Name: "Bandit", Type: models.RoleTypeBandit})
	p.CandidateRoles = []models.Role{{Name: "Bandit"}}
	p.IsRevealed = true
	p.HasChosenRole = true
	p.HasConfirmedTeam = true
	p.TeammateIDs = []string{"carol"}

	p.ResetRound()

	assert.Nil(t, p.AssignedRole)
	assert.Empty(t, p.CandidateRoles)
	assert.False(t, p.IsRevealed)
	assert.False(t, p.HasChosenRole)
	assert.False(t, p.HasConfirmedTeam)
	assert.Empty(t, p.TeammateIDs)
}

func TestPlayer_ClearRoomCodeOnlyClearsMatchingRoom(t *testing.T) {
	p := New("p1", "Alice")
	p.SetRoomCode("111111")

	assert.False(t, p.ClearRoomCode("222222"), "a stale code must not clear the current room")
	assert.Equal(t, "111111", p.RoomCode())

	assert.True(t, p.ClearRoomCode("111111"))
	assert.Empty(t, p.RoomCode())
}
