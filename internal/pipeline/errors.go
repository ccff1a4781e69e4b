package pipeline

import "errors"

// ErrSessionBusy is returned when an operation is started on a session that
// is already running one.
var ErrSessionBusy = errors.New("session is busy with another operation")
