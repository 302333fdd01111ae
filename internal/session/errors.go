package session

import "errors"

var (
	ErrUploadFailed     = errors.New("upload failed")
	ErrGenerationFailed = errors.New("generation failed")
	ErrInputNotAccepted = errors.New("session does not accept input yet")
	ErrUnknownMode      = errors.New("unknown mode")
)
