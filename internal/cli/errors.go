package cli

import "errors"

var (
	ErrMissingArgs    = errors.New("missing arguments")
	ErrTooManyArgs    = errors.New("too many arguments")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoStdin        = errors.New("no stdin available")
	ErrPartialCopy    = errors.New("stream stopped before end of file")
)
