package session

// Record is the native session as persisted in Redis.
//
// Values holds raw, already-encoded blobs keyed by their namespaced storage key.
// CreatedAt and ExpiresAt are Unix seconds; ExpiresAt is the absolute deadline.
type Record struct {
	ID        string
	Values    map[string][]byte
	CreatedAt int64
	ExpiresAt int64
}

// Entry is one stored logical value. ExpireAt is Unix seconds; zero means the entry
// never expires.
type Entry struct {
	Value    []byte
	ExpireAt int64
}

// ExpiredAt reports whether the entry has an expiry strictly before now (Unix seconds).
func (e Entry) ExpiredAt(now int64) bool {
	return e.ExpireAt != 0 && e.ExpireAt < now
}
