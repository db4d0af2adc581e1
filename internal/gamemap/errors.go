package gamemap

import "errors"

// Error kinds returned by world mutations and player commands. All of them
// are local to the triggering command.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotOwned              = errors.New("not owned")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrInvalidTarget         = errors.New("invalid target")
	ErrPathNotFound          = errors.New("path not found")
	ErrUnknownPlayer         = errors.New("unknown player")
	ErrInvariant             = errors.New("world invariant violated")
)

// ReasonCode maps an error to the short code sent to clients.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotOwned):
		return "not_owned"
	case errors.Is(err, ErrInsufficientResources):
		return "insufficient_resources"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrPathNotFound):
		return "path_not_found"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	default:
		return "internal_error"
	}
}
