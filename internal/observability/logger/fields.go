package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard HTTP fields.

// RequestID field for the request id.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method field for the HTTP method.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path field for the request path.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status field for the HTTP status code.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration field for the request duration.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ClientIP field for the client address.
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Domain fields.

// Platform field for the social platform name.
func Platform(v string) zap.Field { return zap.String("platform", v) }

// UserID field for the originating user.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// StateID field for the authorization state id.
func StateID(v string) zap.Field { return zap.String("state_id", v) }

// System fields.

// Component field for the component/module emitting the entry.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op field for the current operation.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer field for the layer (controller, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err field for an error.
func Err(err error) zap.Field { return zap.Error(err) }

// Generic fields.

// String generic string field.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Int generic int field.
func Int(key string, v int) zap.Field { return zap.Int(key, v) }

// Bool generic bool field.
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Any generic field for arbitrary values.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
