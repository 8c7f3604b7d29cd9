package domain

import "errors"

// ErrSessionNotFound is returned when a conversation id is absent from the
// store. Handlers map it to 404.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidInput is returned for malformed requests: a missing
// conversationId, an empty message list, or a newest message whose role is
// not "user". Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrUpstream is returned when the completion provider fails or is
// misconfigured. Handlers map it to 502. No retry is attempted.
var ErrUpstream = errors.New("upstream failure")
