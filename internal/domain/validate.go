package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinRoomPasswordLen applies only when a room password is set.
const MinRoomPasswordLen = 4

var (
	ErrMissingCredentials   = errors.New("user id and password are required")
	ErrMissingRoomTitle     = errors.New("room title is required")
	ErrRoomPasswordTooShort = errors.New("room password must be at least 4 characters")
	ErrMissingRoomCode      = errors.New("room code is required")
	ErrInvalidTransition    = errors.New("action is not available on the current view")
)

// Credentials carries login or signup input. Password is transient.
type Credentials struct {
	UserID   string
	Password string
	Nickname string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.UserID) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// RoomDraft is the create-room form.
type RoomDraft struct {
	Title    string
	Password string
}

func (d RoomDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrMissingRoomTitle
	}
	if d.Password != "" && utf8.RuneCountInString(d.Password) < MinRoomPasswordLen {
		return ErrRoomPasswordTooShort
	}
	return nil
}

// IsValidationError reports whether err came from local input checks.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrMissingRoomTitle) ||
		errors.Is(err, ErrRoomPasswordTooShort) ||
		errors.Is(err, ErrMissingRoomCode)
}
