package player

import (
	"sync"
)

// Directory maps durable player ids to players and their current session.
type Directory struct {
	players   map[string]*Player
	bySession map[string]string
	mutex     sync.RWMutex
}

func NewDirectory() *Directory {
	return &Directory{
		players:   make(map[string]*Player),
		bySession: make(map[string]string),
	}
}

// Login attaches sessionID to playerID, creating the identity on first sight.
// The second result is true when the player was already known.
func (d *Directory) Login(playerID, displayName, sessionID string) (*Player, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	p, known := d.players[playerID]
	if !known {
		p = New(playerID, displayName)
		d.players[playerID] = p
	}
	if old := p.SessionID(); old != "" && old != sessionID {
		delete(d.bySession, old)
	}
	p.attach(displayName, sessionID)
	d.bySession[sessionID] = playerID
	return p, known
}

// MarkDisconnected flips the player on sessionID offline. It returns false when
// the session is unknown or the player has since moved to another session.
func (d *Directory) MarkDisconnected(sessionID string) (*Player, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	playerID, exists := d.bySession[sessionID]
	if !exists {
		return nil, false
	}
	delete(d.bySession, sessionID)

	p := d.players[playerID]
	if p == nil || !p.detach(sessionID) {
		return nil, false
	}
	return p, true
}

func (d *Directory) Get(playerID string) (*Player, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	p, exists := d.players[playerID]
	return p, exists
}

func (d *Directory) BySession(sessionID string) (*Player, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	playerID, exists := d.bySession[sessionID]
	if !exists {
		return nil, false
	}
	p, exists := d.players[playerID]
	return p, exists
}

// OnlineCount returns the number of players with a live session.
func (d *Directory) OnlineCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	count := 0
	for _, p := range d.players {
		if p.IsConnected() {
			count++
		}
	}
	return count
}
