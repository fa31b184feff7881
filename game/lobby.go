package game

import (
	"fmt"

	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/state"
)

// CreateRoom opens a room under a fresh code with the player as its only member.
func (e *Engine) CreateRoom(playerID string) (*room.Room, error) {
	p, err := e.player(playerID)
	if err != nil {
		return nil, err
	}
	e.leaveCurrent(p)

	r := e.rooms.CreateRoom(room.Options{
		RolePool:         e.catalog.All(),
		AllowsRoleChoice: e.opts.AllowRoleChoiceDefault,
	}, e.broadcaster)
	r.Lock()
	defer r.Unlock()

	r.AddPlayer(p)
	e.sendTo(r, p.ID, network.MsgTypeRoomCreated, e.view(r, r.Members(), p.ID))
	logger.Log.Infof("User %s has created the room %s", p.ID, r.Code)
	e.RefreshGauges()
	return r, nil
}

// JoinRoom seats the player in a room that is still in the lobby.
func (e *Engine) JoinRoom(playerID string, req models.JoinRoomRequest) error {
	p, err := e.player(playerID)
	if err != nil {
		return err
	}

	if p.RoomCode() == req.RoomCode {
		r, err := e.lockRoom(req.RoomCode)
		if err != nil {
			return err
		}
		defer r.Unlock()
		if _, member := r.GetPlayer(p.ID); member {
			e.sendTo(r, p.ID, network.MsgTypeJoinedRoom, e.view(r, r.Members(), p.ID))
			return nil
		}
		return e.join(r, p)
	}

	// Checked before leaving the current room, so an unknown or started room
	// leaves the player seated. The room can still start between the check
	// and the join below; the join then fails with the player already out of
	// their old room. Two room locks are never held at once.
	if err := e.checkJoinable(req.RoomCode); err != nil {
		return err
	}
	e.leaveCurrent(p)

	r, err := e.lockRoom(req.RoomCode)
	if err != nil {
		return err
	}
	defer r.Unlock()
	return e.join(r, p)
}

func (e *Engine) checkJoinable(code string) error {
	r, err := e.lockRoom(code)
	if err != nil {
		return err
	}
	defer r.Unlock()
	if r.Phase() != state.PhaseLobby {
		return fmt.Errorf("%w: game has already started", ErrIllegalTransition)
	}
	return nil
}

func (e *Engine) join(r *room.Room, p *player.Player) error {
	if r.Phase() != state.PhaseLobby {
		return fmt.Errorf("%w: game has already started", ErrIllegalTransition)
	}
	p.ResetRound()
	r.AddPlayer(p)

	e.sendTo(r, p.ID, network.MsgTypeJoinedRoom, e.view(r, r.Members(), p.ID))
	e.broadcastView(r, network.MsgTypeUserJoinedRoom, p.ID)
	logger.Log.Infof("User %s has joined the room %s", p.ID, r.Code)
	return nil
}

// LeaveRoom removes the player from the room in any phase.
func (e *Engine) LeaveRoom(playerID string, req models.LeaveRoomRequest) error {
	r, p, err := e.lockMemberRoom(playerID, req.RoomCode)
	if err != nil {
		return err
	}
	defer r.Unlock()

	e.removeMember(r, p)
	logger.Log.Infof("%s left room %s", p.ID, r.Code)
	return nil
}

// leaveCurrent takes the player out of whatever room they are in.
func (e *Engine) leaveCurrent(p *player.Player) {
	code := p.RoomCode()
	if code == "" {
		return
	}
	r, err := e.lockRoom(code)
	if err != nil {
		p.ClearRoomCode(code)
		return
	}
	defer r.Unlock()
	if _, member := r.GetPlayer(p.ID); member {
		e.removeMember(r, p)
	}
}

// removeMember must be called with the room locked.
func (e *Engine) removeMember(r *room.Room, p *player.Player) {
	r.RemovePlayer(p.ID)
	p.ResetRound()

	e.send(p.ID, network.MsgTypeLeftRoom, LeftRoom{RoomCode: r.Code, PlayerID: p.ID})
	e.broadcastView(r, network.MsgTypeUserLeftRoom, "")

	switch r.Phase() {
	case state.PhaseSelecting:
		e.advanceSelection(r)
	case state.PhaseConfirming:
		e.advanceConfirmation(r)
	}
	e.dropIfEmpty(r)
}

// UpdateRolePool replaces the room's pool with catalog entries matching the
// requested names.
func (e *Engine) UpdateRolePool(playerID string, req models.UpdateRolePoolRequest) error {
	r, _, err := e.lockPhase(playerID, req.RoomCode, state.PhaseLobby)
	if err != nil {
		return err
	}
	defer r.Unlock()

	pool, err := e.catalog.Resolve(req.Roles)
	if err != nil {
		return err
	}
	r.RolePool = pool
	e.broadcast(r, network.MsgTypeRolesPoolUpdated, RolePoolUpdated{RoomCode: r.Code, Roles: pool})
	logger.Log.Infof("Room %s role pool set to %d roles", r.Code, len(pool))
	return nil
}

// UpdateRoomSettings changes the flags that were supplied.
func (e *Engine) UpdateRoomSettings(playerID string, req models.UpdateRoomSettingsRequest) error {
	r, _, err := e.lockPhase(playerID, req.RoomCode, state.PhaseLobby)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if req.AllowsRoleChoice != nil {
		r.AllowsRoleChoice = *req.AllowsRoleChoice
	}
	if req.ExposesRolesOnStart != nil {
		r.ExposesRolesOnStart = *req.ExposesRolesOnStart
	}
	e.broadcast(r, network.MsgTypeRoomSettingsUpdated, RoomSettings{
		RoomCode:            r.Code,
		AllowsRoleChoice:    r.AllowsRoleChoice,
		ExposesRolesOnStart: r.ExposesRolesOnStart,
	})
	return nil
}
