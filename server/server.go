package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Sforrego/mtgkingdoms-backend/game"
	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/monitor"
	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/services"
	"github.com/Sforrego/mtgkingdoms-backend/session"
)

// ErrWrongPlayer is returned when a payload names a player other than the
// one logged in on the session.
var ErrWrongPlayer = errors.New("payload playerId does not match the session")

type Options struct {
	Addr              string
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	StatsTimeout      time.Duration
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	engine         *game.Engine
	sessionManager *session.Manager
	playerService  *services.PlayerService
	monitor        *monitor.Monitor
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	conns          sync.WaitGroup
}

func NewGameServer(opts Options, engine *game.Engine, sessionManager *session.Manager,
	playerService *services.PlayerService, mon *monitor.Monitor) *GameServer {
	if opts.StatsTimeout <= 0 {
		opts.StatsTimeout = 5 * time.Second
	}
	s := &GameServer{
		opts:           opts,
		engine:         engine,
		sessionManager: sessionManager,
		playerService:  playerService,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// 允许的跨域来源; an empty list allows any origin.
func (s *GameServer) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and waits for
// their read loops to finish.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	err := s.httpServer.Shutdown(ctx)
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// ReapStaleSessions closes sessions silent for twice the heartbeat interval.
// Their read loops then run the normal disconnect path.
func (s *GameServer) ReapStaleSessions(now time.Time) int {
	if s.opts.HeartbeatInterval <= 0 {
		return 0
	}
	stale := s.sessionManager.Stale(now.Add(-2 * s.opts.HeartbeatInterval))
	for _, sess := range stale {
		logger.Log.Infof("Closing stale session %s", sess.GetID())
		sess.Close()
	}
	return len(stale)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.shutdownChan:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	if s.opts.HeartbeatInterval > 0 {
		conn.SetHeartbeat(s.opts.HeartbeatInterval)
	}

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.engine.Disconnect(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		conn.Close()
	}()

	for {
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	sess.Touch()
	if err := s.dispatch(sess, packet); err != nil {
		logger.Log.Warnf("Session %s message %d rejected: %v", sess.GetID(), packet.MsgID, err)
		s.sendError(sess, err)
	}
}

func (s *GameServer) dispatch(sess *session.Session, packet *network.Packet) error {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		return nil
	case network.MsgTypeLogin:
		return s.handleLogin(sess, packet.Data)
	case network.MsgTypeGetRoles:
		return s.reply(sess, network.MsgTypeRolesData, game.RolesData{Roles: s.engine.Roles()})
	}

	playerID := sess.PlayerID()
	if playerID == "" {
		return game.ErrNotLoggedIn
	}

	switch packet.MsgID {
	case network.MsgTypeCreateRoom:
		if _, err := decode(packet.Data, playerID, func(r models.CreateRoomRequest) string { return r.PlayerID }); err != nil {
			return err
		}
		_, err := s.engine.CreateRoom(playerID)
		return err
	case network.MsgTypeJoinRoom:
		req, err := decode(packet.Data, playerID, func(r models.JoinRoomRequest) string { return r.PlayerID })
		if err != nil {
			return err
		}
		return s.engine.JoinRoom(playerID, req)
	case network.MsgTypeLeaveRoom:
		req, err := decode(packet.Data, playerID, func(r models.LeaveRoomRequest) string { return r.PlayerID })
		if err != nil {
			return err
		}
		return s.engine.LeaveRoom(playerID, req)
	case network.MsgTypeUpdateRolePool:
		req, err := decode(packet.Data, playerID, noActor[models.UpdateRolePoolRequest])
		if err != nil {
			return err
		}
		return s.engine.UpdateRolePool(playerID, req)
	case network.MsgTypeUpdateRoomSettings:
		req, err := decode(packet.Data, playerID, noActor[models.UpdateRoomSettingsRequest])
		if err != nil {
			return err
		}
		return s.engine.UpdateRoomSettings(playerID, req)
	case network.MsgTypeGetStats:
		req, err := decode(packet.Data, playerID, noActor[models.GetStatsRequest])
		if err != nil {
			return err
		}
		return s.handleGetStats(sess, playerID, req)
	case network.MsgTypeStartGame:
		req, err := decode(packet.Data, playerID, noActor[models.StartGameRequest])
		if err != nil {
			return err
		}
		return s.engine.StartGame(playerID, req)
	case network.MsgTypeSelectRole:
		req, err := decode(packet.Data, playerID, func(r models.SelectRoleRequest) string { return r.PlayerID })
		if err != nil {
			return err
		}
		return s.engine.SelectRole(playerID, req)
	case network.MsgTypeConfirmTeam:
		req, err := decode(packet.Data, playerID, playerRoomActor)
		if err != nil {
			return err
		}
		return s.engine.ConfirmTeam(playerID, req)
	case network.MsgTypeRevealRole:
		req, err := decode(packet.Data, playerID, playerRoomActor)
		if err != nil {
			return err
		}
		return s.engine.RevealRole(playerID, req)
	case network.MsgTypeConcealRole:
		req, err := decode(packet.Data, playerID, playerRoomActor)
		if err != nil {
			return err
		}
		return s.engine.ConcealRole(playerID, req)
	case network.MsgTypeEndGame:
		req, err := decode(packet.Data, playerID, noActor[models.EndGameRequest])
		if err != nil {
			return err
		}
		return s.engine.EndGame(context.Background(), playerID, req)
	case network.MsgTypeChosenOneDecision:
		req, err := decode(packet.Data, playerID, func(r models.ChosenOneDecisionRequest) string { return r.PlayerID })
		if err != nil {
			return err
		}
		return s.engine.ChosenOneDecision(playerID, req)
	case network.MsgTypeCultification:
		req, err := decode(packet.Data, playerID, func(r models.CultificationRequest) string { return r.PlayerID })
		if err != nil {
			return err
		}
		return s.engine.Cultify(playerID, req)
	default:
		return fmt.Errorf("unknown message type %d", packet.MsgID)
	}
}

// handleLogin binds the session to the player. A session that was already
// serving the player elsewhere is closed once the new one is attached.
func (s *GameServer) handleLogin(sess *session.Session, data []byte) error {
	var req models.LoginRequest
	if err := unmarshal(data, &req); err != nil {
		return err
	}
	if req.PlayerID == "" {
		return fmt.Errorf("%w: missing playerId", game.ErrNotLoggedIn)
	}
	if bound := sess.PlayerID(); bound != "" && bound != req.PlayerID {
		s.engine.Disconnect(sess.GetID())
	}

	var previous string
	if p, known := s.engine.Directory().Get(req.PlayerID); known {
		previous = p.SessionID()
	}

	if _, err := s.engine.Login(sess.GetID(), req); err != nil {
		return err
	}
	sess.Bind(req.PlayerID)

	if previous != "" && previous != sess.GetID() {
		if old, exists := s.sessionManager.Get(previous); exists {
			logger.Log.Infof("Closing superseded session %s of %s", previous, req.PlayerID)
			old.Close()
		}
	}
	return nil
}

func (s *GameServer) handleGetStats(sess *session.Session, playerID string, req models.GetStatsRequest) error {
	target := req.PlayerID
	if target == "" {
		target = playerID
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StatsTimeout)
	defer cancel()

	stats, err := s.playerService.FetchPlayerStats(ctx, target)
	if err != nil {
		logger.Log.Errorf("Failed to fetch stats for %s: %v", target, err)
		return errors.New("could not load stats")
	}
	return s.reply(sess, network.MsgTypeStatsData, stats)
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return sess.Send(msgID, data)
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	data, _ := json.Marshal(models.ErrorMessage{Message: err.Error()})
	if sendErr := sess.Send(network.MsgTypeError, data); sendErr != nil {
		logger.Log.Debugf("Failed to send error to session %s: %v", sess.GetID(), sendErr)
	}
}

// decode parses data into T and checks the payload's player id, if any,
// against the session's.
func decode[T any](data []byte, playerID string, actor func(T) string) (T, error) {
	var req T
	if err := unmarshal(data, &req); err != nil {
		return req, err
	}
	if id := actor(req); id != "" && id != playerID {
		return req, ErrWrongPlayer
	}
	return req, nil
}

func unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

func noActor[T any](T) string { return "" }

func playerRoomActor(r models.PlayerRoomRequest) string { return r.PlayerID }
