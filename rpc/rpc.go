package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the services given.
func NewServer(addr string, rcvrs ...any) (*Server, error) {
	srv := rpc.NewServer()
	for _, rcvr := range rcvrs {
		if err := srv.Register(rcvr); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the address actually bound, useful with port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes RPC methods.
type GameService struct {
	playerService *services.PlayerService
	timeout       time.Duration
}

// NewGameService creates a new GameService.
func NewGameService(ps *services.PlayerService, timeout time.Duration) *GameService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GameService{playerService: ps, timeout: timeout}
}

// GetPlayerStats follows the net/rpc signature: exported method, exported
// arguments, pointer reply, error result.
type GetPlayerStatsArgs struct {
	PlayerID string
}

type GetPlayerStatsReply struct {
	Stats models.PlayerStats
}

func (gs *GameService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	stats, err := gs.playerService.FetchPlayerStats(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
