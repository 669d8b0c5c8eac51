package room

import "errors"

var (
	ErrNotInRoom       = errors.New("not currently in a room")
	ErrEmptyRoomCode   = errors.New("room code must not be empty")
	ErrEmptyPlayerName = errors.New("player name must not be empty")
)
