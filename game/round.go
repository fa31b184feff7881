package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

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

// StartGame deals roles. With role choice the room moves to selection;
// otherwise every seat takes its only candidate and the round goes live.
func (e *Engine) StartGame(playerID string, req models.StartGameRequest) error {
	r, _, err := e.lockMemberRoom(playerID, req.RoomCode)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if r.Phase() != state.PhaseLobby {
		return fmt.Errorf("%w: a game is already in progress", ErrIllegalTransition)
	}
	connected := r.ConnectedMembers()
	if len(connected) < MinPlayers {
		return fmt.Errorf("%w: %d connected, need %d", ErrInsufficientPlayers, len(connected), MinPlayers)
	}
	for _, m := range r.Members() {
		if !m.IsConnected() {
			r.RemovePlayer(m.ID)
		}
	}

	logger.Log.Infof("Room %s is starting a game", r.Code)
	e.deal(r, connected)

	if !r.AllowsRoleChoice {
		for _, m := range connected {
			if len(m.CandidateRoles) > 0 {
				m.SetRole(m.CandidateRoles[0])
			}
			m.HasChosenRole = true
		}
		e.finalizeRoles(r)
		return e.activate(r)
	}

	if err := r.StateMachine.ChangeState(state.PhaseSelecting); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalTransition, err)
	}
	for _, m := range connected {
		// nothing to pick from
		m.HasChosenRole = len(m.CandidateRoles) == 0
		e.sendTo(r, m.ID, network.MsgTypeSelectRoleOptions, RoleOptions{RoomCode: r.Code, Candidates: m.CandidateRoles})
	}
	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	e.advanceSelection(r)
	return nil
}

func (e *Engine) deal(r *room.Room, members []*player.Player) {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	req := roles.Request{
		MemberIDs:        ids,
		Pool:             r.RolePool,
		PreviousRound:    r.PreviousRoundRoles,
		PreviousLeaderID: r.PreviousLeaderID,
		ChoicesPerSeat:   roles.ChoicesPerSeat(r.AllowsRoleChoice),
	}

	e.rngMu.Lock()
	allocation, shortfalls := roles.Assign(req, e.rng)
	e.rngMu.Unlock()

	for _, s := range shortfalls {
		logger.Log.Warnf("Room %s allocation shortfall: %s", r.Code, s)
		e.monitor.IncAllocationShortfall(string(s.Type))
	}
	for _, m := range members {
		m.ResetRound()
		m.CandidateRoles = allocation[m.ID]
	}
}

// SelectRole records the player's pick from their own candidates.
func (e *Engine) SelectRole(playerID string, req models.SelectRoleRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseSelecting)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if req.Role == nil || req.Role.Name == "" {
		return fmt.Errorf("%w: no role selected", ErrInvalidChoice)
	}
	choice, ok := p.IsCandidate(req.Role.Name)
	if !ok {
		return fmt.Errorf("%w: %s is not one of your options", ErrInvalidChoice, req.Role.Name)
	}
	p.SetRole(choice)
	p.HasChosenRole = true

	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	e.advanceSelection(r)
	return nil
}

// advanceSelection moves to team confirmation once every connected member has
// a role. Disconnected seats take their first candidate.
func (e *Engine) advanceSelection(r *room.Room) {
	if r.Phase() != state.PhaseSelecting || !allConnected(r, func(m *player.Player) bool { return m.HasChosenRole }) {
		return
	}
	members := r.Members()
	for _, m := range members {
		if !m.HasChosenRole {
			if len(m.CandidateRoles) > 0 {
				m.SetRole(m.CandidateRoles[0])
			}
			m.HasChosenRole = true
		}
	}
	e.finalizeRoles(r)

	if err := r.StateMachine.ChangeState(state.PhaseConfirming); err != nil {
		logger.Log.Errorf("Room %s: %v", r.Code, err)
		return
	}
	for _, m := range members {
		if m.IsConnected() {
			e.sendTo(r, m.ID, network.MsgTypeReviewTeam, teamReview(r, members, m))
		}
	}
	e.broadcastView(r, network.MsgTypeGameUpdated, "")
}

// ConfirmTeam acknowledges the player has seen their team.
func (e *Engine) ConfirmTeam(playerID string, req models.PlayerRoomRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseConfirming)
	if err != nil {
		return err
	}
	defer r.Unlock()

	p.HasConfirmedTeam = true
	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	e.advanceConfirmation(r)
	return nil
}

func (e *Engine) advanceConfirmation(r *room.Room) {
	if r.Phase() != state.PhaseConfirming || !allConnected(r, func(m *player.Player) bool { return m.HasConfirmedTeam }) {
		return
	}
	if err := e.activate(r); err != nil {
		logger.Log.Errorf("Room %s: %v", r.Code, err)
	}
}

// allConnected reports whether done holds for every connected member, and
// that there is at least one.
func allConnected(r *room.Room, done func(*player.Player) bool) bool {
	connected := r.ConnectedMembers()
	if len(connected) == 0 {
		return false
	}
	for _, m := range connected {
		if !done(m) {
			return false
		}
	}
	return true
}

// finalizeRoles runs once every seat holds a role: it remembers the round's
// roles, applies corruption and computes teams.
func (e *Engine) finalizeRoles(r *room.Room) {
	members := r.Members()

	var seated []*player.Player
	var assigned []models.Role
	for _, m := range members {
		if m.AssignedRole != nil {
			seated = append(seated, m)
			assigned = append(assigned, *m.AssignedRole)
		}
	}
	r.PreviousRoundRoles = slices.Clone(assigned)

	if i := roles.CorruptionTarget(assigned); i >= 0 {
		seated[i].SetRole(roles.Corrupt(assigned[i]))
		logger.Log.Infof("Room %s: %s was corrupted", r.Code, assigned[i].Name)
	}
	for _, m := range seated {
		m.StartingRole = copyRole(m.AssignedRole)
	}
	team.ComputeTeammates(members, r.ExposesRolesOnStart)
}

// activate puts the round live and tells every player their role and team.
func (e *Engine) activate(r *room.Room) error {
	if err := r.StateMachine.ChangeState(state.PhaseActive); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalTransition, err)
	}
	r.GameStartedAt = e.opts.Clock()

	members := r.Members()
	var courtiers []models.Role
	r.PreviousLeaderID = ""
	for _, m := range members {
		if m.AssignedRole == nil {
			continue
		}
		if m.AssignedRole.StartsRevealed {
			m.IsRevealed = true
		}
		switch m.AssignedRole.Type {
		case models.RoleTypeMonarch:
			r.PreviousLeaderID = m.ID
		case models.RoleTypeNoble:
			courtiers = append(courtiers, *m.AssignedRole)
		}
	}

	exposed := exposesTypes(r)
	for _, m := range members {
		if !m.IsConnected() {
			continue
		}
		e.sendTo(r, m.ID, network.MsgTypeGameStarted, GameStarted{
			RoomView:      e.view(r, members, m.ID),
			Role:          copyRole(m.AssignedRole),
			Team:          team.TeamOf(members, m, exposed),
			CourtierRoles: courtiers,
		})
	}
	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	e.monitor.IncGamesStarted()
	return nil
}

func teamReview(r *room.Room, members []*player.Player, p *player.Player) TeamReview {
	return TeamReview{
		RoomCode: r.Code,
		Role:     copyRole(p.AssignedRole),
		Team:     team.TeamOf(members, p, exposesTypes(r)),
	}
}

// EndGame finishes the round. A live round with winners is recorded first;
// a round still in selection or confirmation is simply abandoned. Either way
// the room returns to the lobby, even when recording fails.
func (e *Engine) EndGame(ctx context.Context, playerID string, req models.EndGameRequest) error {
	r, _, err := e.lockMemberRoom(playerID, req.RoomCode)
	if err != nil {
		return err
	}
	defer r.Unlock()

	var ended GameEnded
	outcome := monitor.OutcomeNoWinner
	switch r.Phase() {
	case state.PhaseSelecting, state.PhaseConfirming:
		outcome = monitor.OutcomeAborted
		logger.Log.Infof("Room %s abandoned role selection", r.Code)
	case state.PhaseActive:
		logger.Log.Infof("Room %s has ended a game", r.Code)
		if len(req.WinnerIDs) > 0 {
			ended.GameID = uuid.NewString()
			ended.WinnerIDs = slices.Clone(req.WinnerIDs)
			if err := e.persist(ctx, r, ended.GameID, req.WinnerIDs); err != nil {
				logger.Log.Errorf("Room %s: failed to record game %s: %v", r.Code, ended.GameID, err)
				e.monitor.IncPersistenceFailures()
				outcome = monitor.OutcomeRecordFailed
			} else {
				ended.Recorded = true
				outcome = monitor.OutcomeRecorded
			}
		}
	default:
		return fmt.Errorf("%w: no active game to end", ErrIllegalTransition)
	}

	if err := r.StateMachine.ChangeState(state.PhaseEnded); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalTransition, err)
	}
	e.resetRound(r, ended)
	e.monitor.IncGamesEnded(outcome)
	return nil
}

// persist captures the round from room state and writes it within the
// configured timeout.
func (e *Engine) persist(ctx context.Context, r *room.Room, gameID string, winnerIDs []string) error {
	if e.recorder == nil {
		return nil
	}
	endedAt := e.opts.Clock()
	members := r.Members()

	summary := models.GameSummary{
		GameID:      gameID,
		RoomCode:    r.Code,
		StartedAt:   r.GameStartedAt,
		EndedAt:     endedAt,
		PlayerCount: len(members),
	}
	if !r.GameStartedAt.IsZero() {
		summary.GameLength = models.FormatGameLength(endedAt.Sub(r.GameStartedAt))
	}
	outcomes := make([]models.PlayerOutcome, 0, len(members))
	for _, m := range members {
		outcomes = append(outcomes, outcomeOf(gameID, m, slices.Contains(winnerIDs, m.ID), endedAt))
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.PersistTimeout)
	defer cancel()

	if err := e.recorder.RecordCompletedGame(ctx, summary); err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	var errs []error
	for _, o := range outcomes {
		if err := e.recorder.RecordPlayerOutcome(ctx, o); err != nil {
			errs = append(errs, fmt.Errorf("record outcome of %s: %w", o.PlayerID, err))
		}
	}
	return errors.Join(errs...)
}

func outcomeOf(gameID string, m *player.Player, winner bool, at time.Time) models.PlayerOutcome {
	o := models.PlayerOutcome{
		GameID:     gameID,
		PlayerID:   m.ID,
		IsWinner:   winner,
		IsRevealed: m.IsRevealed,
		RecordedAt: at,
	}
	if m.StartingRole != nil {
		o.StartingRole = m.StartingRole.Name
		o.StartingRoleType = m.StartingRole.Type
	}
	if m.AssignedRole != nil {
		o.EndingRole = m.AssignedRole.Name
		o.EndingRoleType = m.AssignedRole.Type
	}
	if len(m.CandidateRoles) > 0 {
		o.PotentialRole1 = m.CandidateRoles[0].Name
	}
	if len(m.CandidateRoles) > 1 {
		o.PotentialRole2 = m.CandidateRoles[1].Name
	}
	return o
}

// resetRound clears every member's round state, evicts the disconnected and
// returns the room to the lobby.
func (e *Engine) resetRound(r *room.Room, ended GameEnded) {
	for _, m := range r.Members() {
		m.ResetRound()
		if !m.IsConnected() {
			r.RemovePlayer(m.ID)
		}
	}
	r.GameStartedAt = time.Time{}
	if err := r.StateMachine.ChangeState(state.PhaseLobby); err != nil {
		r.StateMachine.Reset(state.PhaseLobby)
	}

	members := r.Members()
	for _, m := range members {
		if !m.IsConnected() {
			continue
		}
		payload := ended
		payload.RoomView = e.view(r, members, m.ID)
		e.sendTo(r, m.ID, network.MsgTypeGameEnded, payload)
	}
	e.dropIfEmpty(r)
}
