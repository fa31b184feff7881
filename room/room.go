// room/room.go
package room

import (
	crand "crypto/rand"
	"errors"
	"math/big"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/state"
)

// RoomCodeLength is the number of digits in a generated room code.
const RoomCodeLength = 6

var ErrRoomExists = errors.New("room already exists")

// Options configure a new room.
type Options struct {
	Persistent          bool
	RolePool            []models.Role
	AllowsRoleChoice    bool
	ExposesRolesOnStart bool
}

// Room 是游戏房间的核心结构
//
// Lock/Unlock scope one intent: every read or write of round state, settings
// and member game fields happens inside it. The member map has its own lock so
// broadcasters can list recipients while an intent is running.
type Room struct {
	Code         string
	Persistent   bool
	CreatedAt    time.Time
	StateMachine *state.BaseStateMachine

	RolePool            []models.Role
	PreviousRoundRoles  []models.Role
	PreviousLeaderID    string
	AllowsRoleChoice    bool
	ExposesRolesOnStart bool
	GameStartedAt       time.Time
	LastActivity        time.Time

	mu          sync.Mutex
	closed      bool
	members     map[string]*player.Player
	order       []string
	playerMutex sync.RWMutex
	broadcaster Broadcaster
}

// NewRoom 创建一个新房间
func NewRoom(code string, opts Options, broadcaster Broadcaster) *Room {
	now := time.Now()
	return &Room{
		Code:                code,
		Persistent:          opts.Persistent,
		CreatedAt:           now,
		LastActivity:        now,
		StateMachine:        state.NewGameStateMachine(),
		RolePool:            slices.Clone(opts.RolePool),
		AllowsRoleChoice:    opts.AllowsRoleChoice,
		ExposesRolesOnStart: opts.ExposesRolesOnStart,
		members:             make(map[string]*player.Player),
		broadcaster:         broadcaster,
	}
}

// Lock enters the room's single-intent scope.
func (r *Room) Lock() {
	r.mu.Lock()
}

func (r *Room) Unlock() {
	r.mu.Unlock()
}

// Close marks the room as removed from the registry. Callers hold the room lock.
func (r *Room) Close() {
	r.closed = true
}

// IsClosed reports whether the room was removed while the caller waited for the lock.
func (r *Room) IsClosed() bool {
	return r.closed
}

func (r *Room) GetID() string {
	return r.Code
}

func (r *Room) Phase() state.Phase {
	return r.StateMachine.GetCurrentState()
}

// Touch records activity for the idle sweeper. Callers hold the room lock.
func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// Broadcast sends a message to all members in the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.Code, msgID, data)
}

// SendTo sends a message to a single member.
func (r *Room) SendTo(playerID string, msgID uint16, data []byte) error {
	return r.broadcaster.SendToPlayer(playerID, msgID, data)
}

// --- 成员管理 ---

// AddPlayer 添加一个玩家到房间 and points the player at this room.
func (r *Room) AddPlayer(p *player.Player) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if _, exists := r.members[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.members[p.ID] = p
	p.SetRoomCode(r.Code)
}

// RemovePlayer 从房间移除一个玩家 and clears the player's room code.
func (r *Room) RemovePlayer(playerID string) (*player.Player, bool) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	p, exists := r.members[playerID]
	if !exists {
		return nil, false
	}
	delete(r.members, playerID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == playerID })
	p.ClearRoomCode(r.Code)
	return p, true
}

// GetPlayer 获取单个玩家
func (r *Room) GetPlayer(playerID string) (*player.Player, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	p, exists := r.members[playerID]
	return p, exists
}

// Members returns the members in join order.
func (r *Room) Members() []*player.Player {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	members := make([]*player.Player, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, r.members[id])
	}
	return members
}

// MemberIDs returns the member ids in join order.
func (r *Room) MemberIDs() []string {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return slices.Clone(r.order)
}

// ConnectedMembers returns the members with a live connection, in join order.
func (r *Room) ConnectedMembers() []*player.Player {
	var connected []*player.Player
	for _, p := range r.Members() {
		if p.IsConnected() {
			connected = append(connected, p)
		}
	}
	return connected
}

func (r *Room) Size() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.members)
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom creates a room under a freshly generated unique code.
func (m *Manager) CreateRoom(opts Options, broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code := GenerateRoomCode()
	for m.rooms[code] != nil {
		code = GenerateRoomCode()
	}
	room := NewRoom(code, opts, broadcaster)
	m.rooms[code] = room
	return room
}

// CreateRoomWithCode creates a room under a fixed code.
func (m *Manager) CreateRoomWithCode(code string, opts Options, broadcaster Broadcaster) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.rooms[code]; exists {
		return nil, ErrRoomExists
	}
	room := NewRoom(code, opts, broadcaster)
	m.rooms[code] = room
	return room, nil
}

// RemoveRoom 从管理器中移除一个房间
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, code)
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

// Rooms returns a snapshot of all rooms.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// GenerateRoomCode returns a random six digit code in 100000-999999.
func GenerateRoomCode() string {
	const lowest, span = 100000, 900000
	n, err := crand.Int(crand.Reader, big.NewInt(span))
	if err != nil {
		// fallback to math/rand if crypto fails
		return strconv.Itoa(lowest + rand.IntN(span))
	}
	return strconv.Itoa(lowest + int(n.Int64()))
}
