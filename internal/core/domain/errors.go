package domain

import "errors"

var (
	ErrInvalidRoomID     = errors.New("invalid room id")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotAMember        = errors.New("user is not a room member")
	ErrInvalidMessageID  = errors.New("invalid message id")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrMalformedFrame    = errors.New("malformed frame")
)
