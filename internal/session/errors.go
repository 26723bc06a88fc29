package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotEditable = errors.New("section is not editable")
	ErrNotOpen     = errors.New("section is not open")
	ErrNoNeighbor  = errors.New("no further section")
	ErrCancelled   = errors.New("cancelled")
)

// LockedProjectError refuses an operation while the host project is locked.
type LockedProjectError struct {
	Action string
}

func (e *LockedProjectError) Error() string {
	return fmt.Sprintf("cannot %s, because the project is locked", e.Action)
}

// SectionVanishedError means the host deleted the section while it was open.
type SectionVanishedError struct {
	ID string
}

func (e *SectionVanishedError) Error() string {
	return fmt.Sprintf("section %s no longer exists", e.ID)
}

// sentence turns an error message into a message for the user.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
