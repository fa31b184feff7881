package game

import (
	"errors"

	"github.com/Sforrego/mtgkingdoms-backend/roles"
)

var (
	ErrRoomNotFound        = errors.New("room does not exist")
	ErrIllegalTransition   = errors.New("not allowed in the current phase")
	ErrInvalidChoice       = errors.New("invalid choice")
	ErrInsufficientPlayers = errors.New("not enough players to start a game")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrNotMember           = errors.New("not a member of this room")
	ErrUnknownRole         = roles.ErrUnknownRole
)
