package chat

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage is matched by every rejected user input.
var ErrInvalidMessage = errors.New("invalid message")

var (
	ErrEmptyMessage   = fmt.Errorf("%w: message is required", ErrInvalidMessage)
	ErrMessageTooLong = fmt.Errorf("%w: message is too long", ErrInvalidMessage)
)

// ErrUpstream is matched by every failure of the completion service.
var ErrUpstream = errors.New("completion failed")

// ErrUpstreamEmptyResponse means the completion returned no usable text.
var ErrUpstreamEmptyResponse = fmt.Errorf("%w: no response from model", ErrUpstream)
