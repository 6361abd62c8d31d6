package domain

import "errors"

// ErrChatNotFound is returned when no record exists for a chat id. Callers
// treat it as "no date configured yet", not as a failure.
var ErrChatNotFound = errors.New("chat not found")
