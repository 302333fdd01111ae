package session

import (
	"fmt"
	"strings"
)

// Mode selects how turns are sent to the model.
type Mode string

const (
	ModeNone         Mode = ""
	ModePlainChat    Mode = "chat"
	ModeDocumentChat Mode = "document_chat"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModePlainChat:
		return ModePlainChat, nil
	case ModeDocumentChat:
		return ModeDocumentChat, nil
	default:
		return ModeNone, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}
