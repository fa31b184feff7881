// Package game drives rooms through their lifecycle: lobby, role selection,
// team confirmation, the active round and its end.
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/monitor"
	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/state"
	"github.com/Sforrego/mtgkingdoms-backend/team"
)

// MinPlayers is the number of connected members needed to start a round.
const MinPlayers = 2

// Recorder stores finished rounds.
type Recorder interface {
	RecordCompletedGame(ctx context.Context, summary models.GameSummary) error
	RecordPlayerOutcome(ctx context.Context, outcome models.PlayerOutcome) error
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	// DefaultRoomCode names a room that is never deleted. Empty disables it.
	DefaultRoomCode        string
	PersistTimeout         time.Duration
	RoomIdleTTL            time.Duration
	AllowRoleChoiceDefault bool

	Rand  *rand.Rand
	Clock func() time.Time
}

// Engine applies player intents to rooms. Every intent runs under the room's
// lock, so intents against one room never interleave.
type Engine struct {
	rooms       *room.Manager
	directory   *player.Directory
	catalog     *roles.Catalog
	recorder    Recorder
	broadcaster room.Broadcaster
	monitor     *monitor.Monitor
	opts        Options

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine wires the engine to its collaborators. recorder may be nil, in
// which case finished rounds are not stored.
func NewEngine(rooms *room.Manager, directory *player.Directory, catalog *roles.Catalog,
	recorder Recorder, broadcaster room.Broadcaster, mon *monitor.Monitor, opts Options) *Engine {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		rooms:       rooms,
		directory:   directory,
		catalog:     catalog,
		recorder:    recorder,
		broadcaster: broadcaster,
		monitor:     mon,
		opts:        opts,
		rng:         rng,
	}
}

// Rooms returns the room registry.
func (e *Engine) Rooms() *room.Manager {
	return e.rooms
}

// Directory returns the identity directory.
func (e *Engine) Directory() *player.Directory {
	return e.directory
}

// Roles returns the enabled catalog.
func (e *Engine) Roles() []models.Role {
	return e.catalog.All()
}

// EnsureDefaultRoom creates the persistent room if one is configured.
func (e *Engine) EnsureDefaultRoom() (*room.Room, error) {
	code := e.opts.DefaultRoomCode
	if code == "" {
		return nil, nil
	}
	if r, exists := e.rooms.GetRoom(code); exists {
		return r, nil
	}
	r, err := e.rooms.CreateRoomWithCode(code, room.Options{
		Persistent:       true,
		RolePool:         e.catalog.All(),
		AllowsRoleChoice: e.opts.AllowRoleChoiceDefault,
	}, e.broadcaster)
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("Default room %s is open", code)
	e.RefreshGauges()
	return r, nil
}

// Login binds sessionID to the player, creating the identity on first sight.
// A player still seated in a room gets the room back exactly as they left it.
func (e *Engine) Login(sessionID string, req models.LoginRequest) (*player.Player, error) {
	if req.PlayerID == "" {
		return nil, fmt.Errorf("%w: missing playerId", ErrNotLoggedIn)
	}
	p, known := e.directory.Login(req.PlayerID, req.DisplayName, sessionID)
	logger.Log.Infof("User %s with session %s logged in", p.ID, sessionID)
	e.RefreshGauges()

	code := p.RoomCode()
	e.send(p.ID, network.MsgTypeLoggedIn, LoggedIn{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName(),
		RoomCode:    code,
		Reconnected: known && code != "",
	})
	if code == "" {
		return p, nil
	}

	r, err := e.lockRoom(code)
	if err != nil {
		p.ClearRoomCode(code)
		return p, nil
	}
	defer r.Unlock()

	if _, member := r.GetPlayer(p.ID); !member {
		p.ClearRoomCode(code)
		return p, nil
	}

	members := r.Members()
	e.sendTo(r, p.ID, network.MsgTypeReconnectedToRoom, Reconnected{
		RoomView: e.view(r, members, p.ID),
		Team:     team.TeamOf(members, p, exposesTypes(r)),
	})
	switch {
	case r.Phase() == state.PhaseSelecting && !p.HasChosenRole:
		e.sendTo(r, p.ID, network.MsgTypeSelectRoleOptions, RoleOptions{RoomCode: r.Code, Candidates: p.CandidateRoles})
	case r.Phase() == state.PhaseConfirming && !p.HasConfirmedTeam:
		e.sendTo(r, p.ID, network.MsgTypeReviewTeam, teamReview(r, members, p))
	}
	e.broadcastView(r, network.MsgTypeGameUpdated, p.ID)
	return p, nil
}

// Disconnect marks the player on sessionID offline. Outside a round the
// player is evicted from their room; during one their seat is kept.
func (e *Engine) Disconnect(sessionID string) {
	p, ok := e.directory.MarkDisconnected(sessionID)
	if !ok {
		return
	}
	logger.Log.Infof("User %s disconnected", p.ID)
	defer e.RefreshGauges()

	code := p.RoomCode()
	if code == "" {
		return
	}
	r, err := e.lockRoom(code)
	if err != nil {
		return
	}
	defer r.Unlock()

	if _, member := r.GetPlayer(p.ID); !member {
		return
	}
	switch r.Phase() {
	case state.PhaseSelecting:
		e.advanceSelection(r)
	case state.PhaseConfirming:
		e.advanceConfirmation(r)
	case state.PhaseActive:
	default:
		r.RemovePlayer(p.ID)
	}
	e.broadcastView(r, network.MsgTypeUserDisconnected, p.ID)
	e.dropIfEmpty(r)
}

// SweepIdleRooms deletes rooms with no connected member that have been idle
// longer than the configured TTL. The default room is reset instead.
func (e *Engine) SweepIdleRooms(now time.Time) int {
	if e.opts.RoomIdleTTL <= 0 {
		return 0
	}
	removed := 0
	for _, r := range e.rooms.Rooms() {
		r.Lock()
		if r.IsClosed() || len(r.ConnectedMembers()) > 0 || now.Sub(r.LastActivity) < e.opts.RoomIdleTTL {
			r.Unlock()
			continue
		}
		if r.Persistent {
			if r.Phase() != state.PhaseLobby || r.Size() > 0 {
				for _, m := range r.Members() {
					m.ResetRound()
					r.RemovePlayer(m.ID)
				}
				r.GameStartedAt = time.Time{}
				r.StateMachine.Reset(state.PhaseLobby)
				logger.Log.Infof("Default room %s reset after being idle", r.Code)
			}
			r.Unlock()
			continue
		}
		for _, m := range r.Members() {
			m.ResetRound()
			r.RemovePlayer(m.ID)
		}
		r.Close()
		e.rooms.RemoveRoom(r.Code)
		logger.Log.Infof("Room %s deleted after being idle", r.Code)
		removed++
		r.Unlock()
	}
	if removed > 0 {
		e.RefreshGauges()
	}
	return removed
}

// RefreshGauges publishes room and online player counts.
func (e *Engine) RefreshGauges() {
	e.monitor.SetActiveRooms(e.rooms.Count())
	e.monitor.SetOnlinePlayers(e.directory.OnlineCount())
}

// --- helpers ---

func (e *Engine) player(playerID string) (*player.Player, error) {
	p, exists := e.directory.Get(playerID)
	if !exists {
		return nil, ErrNotLoggedIn
	}
	return p, nil
}

// lockRoom returns the room locked. Callers must Unlock.
func (e *Engine) lockRoom(code string) (*room.Room, error) {
	r, exists := e.rooms.GetRoom(code)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	r.Lock()
	if r.IsClosed() {
		r.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	r.Touch()
	return r, nil
}

// lockMemberRoom is lockRoom plus a membership check.
func (e *Engine) lockMemberRoom(playerID, code string) (*room.Room, *player.Player, error) {
	r, err := e.lockRoom(code)
	if err != nil {
		return nil, nil, err
	}
	p, member := r.GetPlayer(playerID)
	if !member {
		r.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotMember, code)
	}
	return r, p, nil
}

// lockPhase is lockMemberRoom restricted to one phase.
func (e *Engine) lockPhase(playerID, code string, phase state.Phase) (*room.Room, *player.Player, error) {
	r, p, err := e.lockMemberRoom(playerID, code)
	if err != nil {
		return nil, nil, err
	}
	if current := r.Phase(); current != phase {
		r.Unlock()
		return nil, nil, fmt.Errorf("%w: room %s is %s", ErrIllegalTransition, code, current)
	}
	return r, p, nil
}

// dropIfEmpty deletes a room nobody is in. The default room goes back to the lobby.
func (e *Engine) dropIfEmpty(r *room.Room) {
	if r.Size() > 0 {
		return
	}
	if r.Persistent {
		if r.Phase() != state.PhaseLobby {
			r.GameStartedAt = time.Time{}
			r.StateMachine.Reset(state.PhaseLobby)
		}
		return
	}
	r.Close()
	e.rooms.RemoveRoom(r.Code)
	logger.Log.Infof("Room %s deleted", r.Code)
	e.RefreshGauges()
}

// exposesTypes reports whether everyone sees everyone's role type.
func exposesTypes(r *room.Room) bool {
	return r.ExposesRolesOnStart && r.Phase() == state.PhaseActive
}

func (e *Engine) view(r *room.Room, members []*player.Player, observerID string) RoomView {
	return RoomView{
		RoomCode:            r.Code,
		Phase:               r.Phase(),
		Players:             team.Sanitize(members, observerID, exposesTypes(r)),
		RolePool:            slices.Clone(r.RolePool),
		AllowsRoleChoice:    r.AllowsRoleChoice,
		ExposesRolesOnStart: r.ExposesRolesOnStart,
	}
}

// broadcastView sends every connected member (but exceptID) the room as they may see it.
func (e *Engine) broadcastView(r *room.Room, msgID uint16, exceptID string) {
	members := r.Members()
	for _, m := range members {
		if m.ID == exceptID || !m.IsConnected() {
			continue
		}
		e.sendTo(r, m.ID, msgID, e.view(r, members, m.ID))
	}
}

func (e *Engine) sendTo(r *room.Room, playerID string, msgID uint16, payload any) {
	data, ok := encode(msgID, payload)
	if !ok {
		return
	}
	if err := r.SendTo(playerID, msgID, data); err != nil {
		logger.Log.Debugf("Room %s: send %d to %s failed: %v", r.Code, msgID, playerID, err)
	}
}

func (e *Engine) send(playerID string, msgID uint16, payload any) {
	data, ok := encode(msgID, payload)
	if !ok {
		return
	}
	if err := e.broadcaster.SendToPlayer(playerID, msgID, data); err != nil {
		logger.Log.Debugf("send %d to %s failed: %v", msgID, playerID, err)
	}
}

func (e *Engine) broadcast(r *room.Room, msgID uint16, payload any) {
	data, ok := encode(msgID, payload)
	if !ok {
		return
	}
	if err := r.Broadcast(msgID, data); err != nil {
		logger.Log.Debugf("Room %s: broadcast %d failed: %v", r.Code, msgID, err)
	}
}

func encode(msgID uint16, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("encode message %d: %v", msgID, err)
		return nil, false
	}
	return data, true
}

func copyRole(r *models.Role) *models.Role {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
