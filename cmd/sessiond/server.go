package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/audit/natssink"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type app struct {
	sessions *goSession.Manager
	tokens   *jwt.Manager
	logins   *rate.Limiter
	logger   zerolog.Logger
	cleanup  []func()
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// newApp wires the session manager, principal tokens and the optional NATS
// audit sink. rdb is owned by the caller.
func newApp(cfg appConfig, rdb redis.UniversalClient, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		logger.Warn().Msg("no jwt secret configured, tokens will not survive a restart")
	}
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "sessiond",
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	a.tokens = tokens

	logins, err := rate.New(rdb, rate.Config{
		Prefix: cfg.Session.Session.RedisPrefix + ":rl:login",
		Limit:  cfg.LoginLimit,
		Window: cfg.LoginWindow,
	})
	if err != nil {
		return nil, err
	}
	a.logins = logins

	sessCfg := cfg.Session
	builder := goSession.New().
		WithRedis(rdb).
		WithLogger(logger).
		WithPrincipalProvider(middleware.BearerPrincipal(tokens))

	if cfg.NATSURL != "" {
		natsCfg := natssink.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		nc, err := natssink.Connect(natsCfg, logger)
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, nc.Close)
		sessCfg.Audit.Enabled = true
		builder = builder.WithAuditSink(natssink.New(nc, cfg.AuditSubject))
	}

	m, err := builder.WithConfig(sessCfg).Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("session manager: %w", err)
	}
	a.sessions = m
	a.cleanup = append(a.cleanup, m.Close)
	return a, nil
}

func (a *app) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /session/{key}", a.handleGet)
	api.HandleFunc("PUT /session/{key}", a.handlePut)
	api.HandleFunc("DELETE /session/{key}", a.handleDelete)
	api.HandleFunc("POST /login", a.handleLogin)
	api.HandleFunc("POST /logout", a.handleLogout)
	api.HandleFunc("GET /whoami", a.handleWhoami)

	root := http.NewServeMux()
	root.Handle("GET /metrics", prometheus.NewPrometheusExporter(a.sessions).Handler())
	root.HandleFunc("GET /healthz", a.handleHealth)
	root.Handle("/", middleware.ClientIP(middleware.Sessions(a.sessions)(api)))
	return root
}

type putRequest struct {
	Value any    `json:"value"`
	TTL   string `json:"ttl,omitempty"`
}

type loginRequest struct {
	Principal string `json:"principal"`
}

func (a *app) handleGet(w http.ResponseWriter, r *http.Request) {
	h, ok := a.session(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if !h.Exists(key) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": h.Get(key, nil)})
}

func (a *app) handlePut(w http.ResponseWriter, r *http.Request) {
	h, ok := a.session(w, r)
	if !ok {
		return
	}

	var req putRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var ttl time.Duration
	if s := strings.TrimSpace(req.TTL); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid ttl")
			return
		}
		ttl = d
	}

	if err := h.SetTTL(r.PathValue("key"), req.Value, ttl); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, goSession.ErrValueTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleDelete(w http.ResponseWriter, r *http.Request) {
	h, ok := a.session(w, r)
	if !ok {
		return
	}
	h.Delete(r.PathValue("key"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := a.logins.Allow(r.Context(), remoteHost(r)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "redis unavailable")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	principal := strings.TrimSpace(req.Principal)
	if principal == "" || principal == goSession.AnonymousPrincipal {
		writeError(w, http.StatusBadRequest, "principal required")
		return
	}

	token, err := a.tokens.CreatePrincipalToken(principal)
	if err != nil {
		a.logger.Error().Err(err).Msg("issue principal token")
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	h, ok := a.session(w, r)
	if !ok {
		return
	}
	h.Destroy(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleWhoami(w http.ResponseWriter, r *http.Request) {
	h, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"principal": h.Principal(), "session_id": h.ID()})
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := a.sessions.Ping(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "redis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redis_latency": latency.String()})
}

func (a *app) session(w http.ResponseWriter, r *http.Request) (*goSession.Handler, bool) {
	h, ok := middleware.FromContext(r.Context())
	if !ok || !h.Valid() {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return nil, false
	}
	return h, true
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
