package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	goSession "github.com/MrEthical07/goSession"
)

type fileConfig struct {
	Listen           string `toml:"listen"`
	RedisAddr        string `toml:"redis_addr"`
	RedisPrefix      string `toml:"redis_prefix"`
	Namespace        string `toml:"namespace"`
	UserCheckKey     string `toml:"user_check_key"`
	IdleTimeout      string `toml:"idle_timeout"`
	AbsoluteLifetime string `toml:"absolute_lifetime"`
	CookieName       string `toml:"cookie_name"`
	CookieSecure     bool   `toml:"cookie_secure"`
	CookieSameSite   string `toml:"cookie_same_site"`
	JWTSecret        string `toml:"jwt_secret"`
	TokenTTL         string `toml:"token_ttl"`
	NATSURL          string `toml:"nats_url"`
	AuditSubject     string `toml:"audit_subject"`
	LoginLimit       int    `toml:"login_limit"`
	LoginWindow      string `toml:"login_window"`
}

// appConfig is everything sessiond needs to run.
type appConfig struct {
	Listen       string
	RedisAddr    string
	JWTSecret    string
	TokenTTL     time.Duration
	NATSURL      string
	AuditSubject string
	LoginLimit   int
	LoginWindow  time.Duration
	Session      goSession.Config
}

func defaultAppConfig() appConfig {
	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return appConfig{
		Listen:      ":8080",
		TokenTTL:    time.Hour,
		LoginLimit:  10,
		LoginWindow: time.Minute,
		Session:     cfg,
	}
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load sessiond config: %w", err)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("redis_addr") {
		cfg.RedisAddr = strings.TrimSpace(raw.RedisAddr)
	}
	if meta.IsDefined("redis_prefix") {
		cfg.Session.Session.RedisPrefix = strings.TrimSpace(raw.RedisPrefix)
	}
	if meta.IsDefined("namespace") {
		cfg.Session.Session.KeyNamespace = strings.TrimSpace(raw.Namespace)
	}
	if meta.IsDefined("user_check_key") {
		cfg.Session.Session.UserCheckKey = strings.TrimSpace(raw.UserCheckKey)
	}
	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.Session.Session.IdleTimeout = d
	}
	if meta.IsDefined("absolute_lifetime") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AbsoluteLifetime))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse absolute_lifetime: %w", err)
		}
		cfg.Session.Session.AbsoluteLifetime = d
	}
	if meta.IsDefined("cookie_name") {
		cfg.Session.Cookie.Name = strings.TrimSpace(raw.CookieName)
	}
	if meta.IsDefined("cookie_secure") {
		cfg.Session.Cookie.Secure = raw.CookieSecure
	}
	if meta.IsDefined("cookie_same_site") {
		mode, err := parseSameSite(raw.CookieSameSite)
		if err != nil {
			return appConfig{}, err
		}
		cfg.Session.Cookie.SameSite = mode
	}
	if meta.IsDefined("jwt_secret") {
		cfg.JWTSecret = raw.JWTSecret
	}
	if meta.IsDefined("token_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TokenTTL))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse token_ttl: %w", err)
		}
		cfg.TokenTTL = d
	}
	if meta.IsDefined("nats_url") {
		cfg.NATSURL = strings.TrimSpace(raw.NATSURL)
	}
	if meta.IsDefined("audit_subject") {
		cfg.AuditSubject = strings.TrimSpace(raw.AuditSubject)
	}
	if meta.IsDefined("login_limit") {
		cfg.LoginLimit = raw.LoginLimit
	}
	if meta.IsDefined("login_window") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.LoginWindow))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse login_window: %w", err)
		}
		cfg.LoginWindow = d
	}

	return cfg, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown cookie_same_site %q", v)
	}
}
