package state

import (
	"errors"
	"sync"
)

// Phase is the lifecycle position of a room.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseSelecting  Phase = "selecting"
	PhaseConfirming Phase = "confirming"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// InGame reports whether roles have been dealt for the current round.
func (p Phase) InGame() bool {
	return p == PhaseSelecting || p == PhaseConfirming || p == PhaseActive
}

// 状态机接口
type StateMachine interface {
	ChangeState(to Phase) error
	GetCurrentState() Phase
	AddTransition(from, to Phase, condition func() bool) error
	OnEnter(phase Phase, fn func())
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现. Only registered transitions are allowed.
type BaseStateMachine struct {
	currentState Phase
	transitions  map[Phase]map[Phase]func() bool // fromState -> toState -> condition
	onEnter      map[Phase]func()
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState Phase) *BaseStateMachine {
	return &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[Phase]map[Phase]func() bool),
		onEnter:      make(map[Phase]func()),
	}
}

// NewGameStateMachine returns a machine in the lobby with the room lifecycle
// lobby → [selecting → confirming →] active → ended → lobby registered.
// Selection and confirmation may also be aborted to ended.
func NewGameStateMachine() *BaseStateMachine {
	sm := NewBaseStateMachine(PhaseLobby)
	for _, t := range [][2]Phase{
		{PhaseLobby, PhaseSelecting},
		{PhaseLobby, PhaseActive},
		{PhaseSelecting, PhaseConfirming},
		{PhaseSelecting, PhaseEnded},
		{PhaseConfirming, PhaseActive},
		{PhaseConfirming, PhaseEnded},
		{PhaseActive, PhaseEnded},
		{PhaseEnded, PhaseLobby},
	} {
		sm.AddTransition(t[0], t[1], nil)
	}
	return sm
}

func (sm *BaseStateMachine) ChangeState(newState Phase) error {
	sm.mutex.Lock()

	conditions, exists := sm.transitions[sm.currentState]
	if !exists {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[newState]
	if !exists || (condition != nil && !condition()) {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}

	sm.currentState = newState
	hook := sm.onEnter[newState]
	sm.mutex.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() Phase {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from, to Phase, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Phase]func() bool)
	}

	sm.transitions[from][to] = condition
	return nil
}

// OnEnter registers fn to run after every successful transition into phase.
func (sm *BaseStateMachine) OnEnter(phase Phase, fn func()) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.onEnter[phase] = fn
}

// Reset forces the machine back to phase without running hooks.
func (sm *BaseStateMachine) Reset(phase Phase) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.currentState = phase
}
