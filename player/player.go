// Package player holds durable player identities and the directory that maps
// them to their current connection.
package player

import (
	"slices"
	"sync"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// Player survives reconnects. Connection state is guarded by the player's own
// mutex; round state is guarded by the lock of the room the player is in.
type Player struct {
	ID string

	mu          sync.RWMutex
	displayName string
	sessionID   string
	connected   bool
	roomCode    string

	AssignedRole     *models.Role
	StartingRole     *models.Role
	CandidateRoles   []models.Role
	IsRevealed       bool
	HasChosenRole    bool
	HasConfirmedTeam bool
	TeammateIDs      []string
}

func New(id, displayName string) *Player {
	return &Player{ID: id, displayName: displayName}
}

func (p *Player) GetID() string {
	return p.ID
}

func (p *Player) DisplayName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.displayName
}

func (p *Player) SessionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionID
}

func (p *Player) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// RoomCode is the room the player belongs to, or "".
func (p *Player) RoomCode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roomCode
}

// SetRoomCode must only be called by the room registry while holding the room lock.
func (p *Player) SetRoomCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomCode = code
}

// ClearRoomCode drops code if it is still the player's room. It needs no room
// lock: a room the player has since moved to is left alone.
func (p *Player) ClearRoomCode(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roomCode != code {
		return false
	}
	p.roomCode = ""
	return true
}

func (p *Player) attach(displayName, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if displayName != "" {
		p.displayName = displayName
	}
	p.sessionID = sessionID
	p.connected = true
}

// detach flips the player offline if sessionID is still the current one.
func (p *Player) detach(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID != sessionID {
		return false
	}
	p.connected = false
	return true
}

// IsCandidate reports whether name is among the player's offered roles.
func (p *Player) IsCandidate(name string) (models.Role, bool) {
	for _, r := range p.CandidateRoles {
		if r.Name == name {
			return r, true
		}
	}
	return models.Role{}, false
}

// SetRole replaces the player's current role with a private copy of r.
func (p *Player) SetRole(r models.Role) {
	p.AssignedRole = &r
}

// HasRole reports whether the player currently holds a role of type t.
func (p *Player) HasRole(t models.RoleType) bool {
	return p.AssignedRole != nil && p.AssignedRole.Type == t
}

// ResetRound clears everything tied to the last round.
func (p *Player) ResetRound() {
	p.AssignedRole = nil
	p.StartingRole = nil
	p.CandidateRoles = nil
	p.IsRevealed = false
	p.HasChosenRole = false
	p.HasConfirmedTeam = false
	p.TeammateIDs = nil
}

// Teammates returns a copy of the teammate ids.
func (p *Player) Teammates() []string {
	return slices.Clone(p.TeammateIDs)
}
