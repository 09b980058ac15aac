package tone

import "errors"

var (
	ErrInvalidNote    = errors.New("invalid note name")
	ErrUnknownTimbre  = errors.New("unknown timbre")
	ErrInvalidParams  = errors.New("invalid synthesis parameters")
	ErrChannelLengths = errors.New("left/right length mismatch")
)
