package goSession

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"
)

// Config holds every tunable of a [Manager].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Session SessionConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls key namespacing, the fixation tracking key and native
// session lifetimes.
//
// The handler namespace is KeyNamespace when set, otherwise AppSlug + KeySlug.
// Every logical key k is stored as namespace + "-" + k.
type SessionConfig struct {
	AppSlug      string
	KeySlug      string
	KeyNamespace string
	UserCheckKey string

	RedisPrefix       string
	IdleTimeout       time.Duration
	AbsoluteLifetime  time.Duration
	SlidingExpiration bool
	JitterEnabled     bool
	JitterRange       time.Duration
	MaxEntrySize      int // encoded bytes per entry
}

// Namespace returns the resolved key namespace.
func (c SessionConfig) Namespace() string {
	if ns := strings.TrimSpace(c.KeyNamespace); ns != "" {
		return ns
	}
	return c.AppSlug + c.KeySlug
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the cookie carrying the native session id.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the commit latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const (
	defaultAppSlug      = "app"
	defaultKeySlug      = "-session"
	defaultUserCheckKey = "user_check"
	defaultCookieName   = "gosession"
)

// DefaultConfig returns the baseline configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			AppSlug:           defaultAppSlug,
			KeySlug:           defaultKeySlug,
			UserCheckKey:      defaultUserCheckKey,
			RedisPrefix:       "gs",
			IdleTimeout:       30 * time.Minute,
			AbsoluteLifetime:  24 * time.Hour,
			SlidingExpiration: true,
			JitterEnabled:     true,
			JitterRange:       30 * time.Second,
			MaxEntrySize:      64 * 1024,
		},
		Cookie: CookieConfig{
			Name:     defaultCookieName,
			Path:     "/",
			Secure:   false,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cross-field invariants. It is called by [Builder.Build].
func (c *Config) Validate() error {
	// Session
	if c.Session.Namespace() == "" {
		return errors.New("Session namespace must not be empty (set AppSlug/KeySlug or KeyNamespace)")
	}
	if strings.TrimSpace(c.Session.UserCheckKey) == "" {
		return errors.New("Session UserCheckKey must not be empty")
	}
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("Session AbsoluteLifetime must be > 0")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("Session IdleTimeout must be >= 0")
	}
	if c.Session.IdleTimeout > c.Session.AbsoluteLifetime {
		return errors.New("Session IdleTimeout must not exceed AbsoluteLifetime")
	}
	if c.Session.JitterRange < 0 {
		return errors.New("Session JitterRange must be >= 0")
	}
	if c.Session.JitterRange > time.Duration((math.MaxInt64-1)/2) {
		return errors.New("Session JitterRange is too large")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("Session JitterRange must be > 0 when JitterEnabled is true")
	}
	if c.Session.MaxEntrySize <= 0 {
		return errors.New("Session MaxEntrySize must be > 0")
	}
	if uint64(c.Session.MaxEntrySize) > math.MaxUint32 {
		return errors.New("Session MaxEntrySize exceeds the record value limit")
	}

	// Cookie
	if !validCookieName(c.Cookie.Name) {
		return errors.New("Cookie Name must be a non-empty token")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must not be empty")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= ' ' || b >= 0x7f || strings.IndexByte(`()<>@,;:\"/[]?={}`, b) >= 0 {
			return false
		}
	}
	return true
}
