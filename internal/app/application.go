package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"meetpulse/internal/auth"
	"meetpulse/internal/call"
	"meetpulse/internal/config"
	"meetpulse/internal/push"
	"meetpulse/internal/relay"
	"meetpulse/internal/room"
	"meetpulse/internal/websocket"
	"meetpulse/pkg/interfaces"
)

// limiterCleanupInterval paces the rate limiter's stale-entry sweep.
const limiterCleanupInterval = 5 * time.Minute

// Application wires the realtime layer together: authentication gate,
// connection registry, room manager, call coordinator, relay, and the HTTP
// server carrying the /ws endpoint.
type Application struct {
	config     *config.Config
	log        *zap.Logger
	registry   *websocket.Registry
	rooms      *room.Manager
	eventRelay *relay.Relay
	httpServer *http.Server
	stopCh     chan struct{}
}

// NewApplication builds all components in dependency order:
// Gate -> Registry -> Rooms -> Notifier -> Calls -> Relay -> Handler -> HTTP.
func NewApplication(cfg *config.Config, log *zap.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	registry := websocket.NewRegistry(log)
	rooms := room.NewManager(log)

	var notifier interfaces.Notifier
	if cfg.PushEndpoint != "" {
		notifier = push.NewClient(cfg.PushEndpoint, cfg.PushKey, cfg.PushTimeout, log)
	} else {
		notifier = push.NopNotifier{Log: log.Named("push")}
	}

	calls := call.NewCoordinator(registry, rooms, notifier, log)
	eventRelay := relay.NewRelay(rooms, calls, relay.NewRateLimiter(cfg.EventsPerMin), log)
	wsHandler := websocket.NewHandler(verifier, registry, rooms, eventRelay,
		cfg.PingInterval, cfg.PongTimeout, log)

	a := &Application{
		config:     cfg,
		log:        log.Named("app"),
		registry:   registry,
		rooms:      rooms,
		eventRelay: eventRelay,
		stopCh:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)
	mux.HandleFunc("/healthz", a.handleHealth)

	a.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return a, nil
}

// Start launches the HTTP server and background maintenance, returning once
// the server is accepting connections.
func (a *Application) Start(ctx context.Context) error {
	a.log.Info("starting", zap.String("addr", a.httpServer.Addr))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go a.limiterCleanupLoop(ctx)

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		a.log.Info("started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the application down: new connections first, then background
// maintenance. Live connections are closed by the server shutdown.
func (a *Application) Stop(ctx context.Context) error {
	a.log.Info("shutting down")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn("HTTP shutdown error", zap.Error(err))
	}

	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}

	a.log.Info("shutdown complete")
	return nil
}

// GetAddr returns the address the server binds.
func (a *Application) GetAddr() string {
	return a.httpServer.Addr
}

// Handler exposes the HTTP handler, used by tests to serve over httptest.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

func (a *Application) limiterCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.eventRelay.CleanupLimiter()
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleHealth reports liveness plus registry and room gauges.
func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]any{
		"status": "ok",
		"stats":  map[string]any{},
	}
	stats := map[string]int{}
	for k, v := range a.registry.Stats() {
		stats[k] = v
	}
	for k, v := range a.rooms.Stats() {
		stats[k] = v
	}
	status["stats"] = stats

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.log.Warn("health encode failed", zap.Error(err))
	}
}
