package services

import "errors"

// Define errors
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found in room")
)
