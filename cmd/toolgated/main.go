// Command toolgated runs the tool-gating proxy: it loads a ProxyConfig,
// wires every component together, and serves stdio and/or HTTP until
// interrupted. There is no in-pack reference for a CLI framework actually
// wired end-to-end (the teacher is a pure library with no cmd/ of its own,
// and the one CLI library its go.mod names was never imported by any
// file in the retrieved pack), so this entrypoint follows the corpus's
// plainer pattern instead: flag.FlagSet subcommands plus
// signal.NotifyContext, the same shape orimyth-contextgate's main.go uses.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/toolgate/toolgate/config"
	"github.com/toolgate/toolgate/discovery"
	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/gate"
	"github.com/toolgate/toolgate/loadbalancer"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/proxy"
	"github.com/toolgate/toolgate/repository"
	"github.com/toolgate/toolgate/router"
	"github.com/toolgate/toolgate/session"
	"github.com/toolgate/toolgate/transport"
	"github.com/toolgate/toolgate/upstream"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Fprintf(os.Stderr, "toolgated %s\n", version)
		return
	}

	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "", "path to a JSON ProxyConfig file (optional)")
	httpAddr := flags.String("http", "", "HTTP listen address, e.g. :8080 (overrides config)")
	logLevel := flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Parse(os.Args[1:])

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(parseLevel(*logLevel))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *httpAddr != "" {
		cfg.HTTPListenAddr = *httpAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("toolgated exited")
	}
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func loadConfig(path string) (config.ProxyConfig, error) {
	cfg := config.DefaultProxyConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.ProxyConfig, logger zerolog.Logger) error {
	bus := event.NewBus()
	repo := repository.New()
	gateCtl := gate.New(cfg.Filter.GateConfig(), bus, cfg.Filter.Chain())
	gatingSvc := discovery.NewGatingService(repo.All, bus)

	pool := transport.NewPool(transport.DefaultPoolConfig())
	clients := upstream.New(dialBackend(pool), bus)
	lb := loadbalancer.New(cfg.LoadBalancer)

	for _, backend := range cfg.Backends {
		connectBackend(ctx, backend, clients, repo, gateCtl, logger)
	}

	proxySvc := proxy.New(repo, &lbDispatcher{clients: clients, lb: lb}, gateCtl, bus)

	sessions, err := buildSessionManager(cfg)
	if err != nil {
		return err
	}

	r := &router.Router{
		ServerInfo: protocol.ServerInfo{Name: "toolgate", Version: version},
		Gate:       gateCtl,
		Repo:       repo,
		Proxy:      proxySvc,
		Sessions:   sessions,
		Gating:     gatingSvc,
		Bus:        bus,
		Log:        logger,
	}
	r.Notify = func(ctx context.Context) {
		logger.Debug().Msg("tools.listChanged")
	}

	var httpTransport *transport.HTTP
	if cfg.HTTPListenAddr != "" {
		var opts []transport.Option
		if len(cfg.BearerTokens) > 0 {
			opts = append(opts, transport.WithBearerTokens(cfg.BearerTokens))
		}
		httpTransport = transport.NewHTTPServer(cfg.HTTPListenAddr, pool, opts...)
		httpTransport.OnRequest(httpRequestHandler(r, sessions))
		if err := httpTransport.Start(ctx); err != nil {
			return fmt.Errorf("start http transport: %w", err)
		}
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("http transport listening")
	}

	stdioTransport := transport.NewStdio(os.Stdin, os.Stdout)
	stdioTransport.OnRequest(stickyRequestHandler(r, sessions, "stdio"))
	if err := stdioTransport.Start(ctx); err != nil {
		return fmt.Errorf("start stdio transport: %w", err)
	}

	sweepInterval := time.Duration(cfg.SweepIntervalMs) * time.Millisecond
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	idleTimeout := time.Duration(cfg.SessionIdleMs) * time.Millisecond
	go sweepLoop(ctx, gateCtl, sessions, sweepInterval, idleTimeout, logger)

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	_ = stdioTransport.Stop()
	if httpTransport != nil {
		_ = httpTransport.Stop()
	}
	return nil
}

// connectBackend dials one configured backend, registers its tools into
// the full catalogue, and registers a lazily-loaded toolset the gate can
// activate on demand. Connection failures are logged, not fatal: a
// misconfigured backend shouldn't take the whole proxy down.
func connectBackend(ctx context.Context, cfg upstream.Config, clients *upstream.ClientManager, repo *repository.Repository, gateCtl *gate.Controller, logger zerolog.Logger) {
	if err := clients.Connect(ctx, cfg); err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Name).Msg("backend connect failed")
		return
	}

	tools, err := clients.ListTools(ctx, cfg.Name)
	if err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Name).Msg("backend tools/list failed")
		return
	}

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		_ = repo.AddTool(tool)
		names = append(names, tool.Name)
	}

	gateCtl.Register(gate.Toolset{
		ID: cfg.Name,
		Manifest: &gate.Manifest{
			ID:    cfg.Name,
			Name:  cfg.Name,
			Tools: names,
		},
		Loader: func() ([]protocol.Tool, error) {
			if cached, ok := clients.CachedTools(cfg.Name); ok {
				return cached, nil
			}
			return clients.ListTools(context.Background(), cfg.Name)
		},
	})

	logger.Info().Str("backend", cfg.Name).Int("tools", len(tools)).Msg("backend connected")
}

func buildSessionManager(cfg config.ProxyConfig) (session.Manager, error) {
	switch cfg.SessionBackend {
	case config.SessionJWT:
		key, err := decodeHexKey(cfg.JWTSigningKeyHex)
		if err != nil {
			return nil, fmt.Errorf("jwt signing key: %w", err)
		}
		return session.NewJWT(key, time.Duration(cfg.SessionIdleMs)*time.Millisecond), nil
	case config.SessionRedis:
		return nil, fmt.Errorf("redis session backend requires a *redis.Client constructed by the deployment, not this entrypoint")
	default:
		return session.NewMemory(cfg.MaxSessions), nil
	}
}

func decodeHexKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("jwtSigningKeyHex is required for the jwt session backend")
	}
	return hex.DecodeString(hexKey)
}

func sweepLoop(ctx context.Context, gateCtl *gate.Controller, sessions session.Manager, interval, idleTimeout time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if disabled := gateCtl.SweepExpired(); len(disabled) > 0 {
				logger.Debug().Strs("toolsets", disabled).Msg("swept expired toolsets")
			}
			if idleTimeout > 0 {
				if evicted, err := sessions.Sweep(ctx, idleTimeout); err == nil && evicted > 0 {
					logger.Debug().Int("evicted", evicted).Msg("swept idle sessions")
				}
			}
		}
	}
}
