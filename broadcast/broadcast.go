// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/session"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoSession      = errors.New("player has no live session")
)

// 广播接口
type Broadcaster interface {
	room.Broadcaster
	BroadcastToAll(msgID uint16, data []byte) error
}

// 基于房间的广播器: resolves player ids to their current session.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	directory      *player.Directory
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, directory *player.Directory, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		directory:      directory,
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom sends to every connected member. Send failures are logged
// and skipped; the read loop notices the dead connection on its own.
func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomCode)
	if !exists {
		return ErrRoomNotFound
	}

	for _, p := range r.ConnectedMembers() {
		if err := b.sendToSession(p, msgID, data); err != nil {
			logger.Log.Debugf("broadcast %d to %s in room %s: %v", msgID, p.ID, roomCode, err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) error {
	p, exists := b.directory.Get(playerID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return b.sendToSession(p, msgID, data)
}

// BroadcastToAll sends to every open session, logged in or not.
func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	var errs []error
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.GetID(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *RoomBroadcaster) sendToSession(p *player.Player, msgID uint16, data []byte) error {
	sessionID := p.SessionID()
	if sessionID == "" {
		return fmt.Errorf("%w: %s", ErrNoSession, p.ID)
	}
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrNoSession, p.ID)
	}
	return s.Send(msgID, data)
}
