package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrManagerNotReady is returned when a nil or unbuilt Manager is used.
	ErrManagerNotReady = errors.New("session manager not initialized")
	// ErrHeadersSent is returned by a native Start once the response is committed.
	ErrHeadersSent = errors.New("response headers already sent")
	// ErrNativeNotStarted is returned by native operations that need a started session.
	ErrNativeNotStarted = errors.New("native session not started")
	// ErrValueEncoding is returned by Set when a value cannot be encoded.
	ErrValueEncoding = errors.New("session value encoding failed")
	// ErrValueTooLarge is returned by Set when an encoded entry exceeds Session.MaxEntrySize.
	ErrValueTooLarge = errors.New("session value too large")
	// ErrKeyTooLong is returned by Set when the namespaced key exceeds [session.MaxKeyLength].
	ErrKeyTooLong = errors.New("session key too long")
	// ErrTooManyValues is returned by Set when a new key would exceed [session.MaxValues].
	ErrTooManyValues = errors.New("too many session values")
	// ErrRecordEncoding is an alias of [session.ErrRecordEncoding].
	ErrRecordEncoding = session.ErrRecordEncoding
	// ErrRedisUnavailable is an alias of [session.ErrRedisUnavailable].
	ErrRedisUnavailable = session.ErrRedisUnavailable
	// ErrSessionNotFound is an alias of [session.ErrSessionNotFound].
	ErrSessionNotFound = session.ErrSessionNotFound
)
