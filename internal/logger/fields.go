package logger

import (
	"time"

	"go.uber.org/zap"
)

// String constructs a string field.
func String(key, value string) Field { return zap.String(key, value) }

// Int constructs an int field.
func Int(key string, value int) Field { return zap.Int(key, value) }

// Bool constructs a bool field.
func Bool(key string, value bool) Field { return zap.Bool(key, value) }

// Duration constructs a duration field.
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Err constructs an error field under the "error" key.
func Err(err error) Field { return zap.Error(err) }

// SessionID tags a log entry with the session it belongs to.
func SessionID(id string) Field { return zap.String("session_id", id) }

// Stage tags a log entry with the pipeline stage name.
func Stage(name string) Field { return zap.String("stage", name) }
