// Command greenhouse is the dashboard daemon for the greenhouse controller.
//
// It polls the controller, keeps an optimistically updated view of every
// field and offers:
//   - REST API and websocket push for the web dashboard
//   - CORS forwarding proxy to the controller under /device/
//   - SQLite history of device-reported values
//   - Interactive operator console
//
// Usage:
//
//	greenhouse [flags]
//
// Flags:
//
//	-config string      Configuration file path
//	-host string        Controller host, "auto" to discover via mDNS
//	-port int           Controller port
//	-listen string      HTTP listen address (default from config, ":8080")
//	-log-level string   Log level: debug, info, warn, error
//	-log-journal string Journal logging: auto, on, off
//	-trace string       Event trace file (CBOR)
//	-history string     History database path, empty to disable
//	-interactive        Start the operator console
//	-advertise          Announce the dashboard via mDNS
//
// Examples:
//
//	# Use the saved connection settings
//	greenhouse
//
//	# Discover the controller and open the console
//	greenhouse -host auto -interactive
//
//	# Record history and an event trace
//	greenhouse -history /var/lib/greenhouse/history.db -trace /var/log/greenhouse/trace.cbor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/siriussoftware2024/controlinvernadero/cmd/greenhouse/interactive"
	"github.com/siriussoftware2024/controlinvernadero/pkg/config"
	"github.com/siriussoftware2024/controlinvernadero/pkg/device"
	"github.com/siriussoftware2024/controlinvernadero/pkg/discovery"
	"github.com/siriussoftware2024/controlinvernadero/pkg/engine"
	"github.com/siriussoftware2024/controlinvernadero/pkg/history"
	ghlog "github.com/siriussoftware2024/controlinvernadero/pkg/log"
	"github.com/siriussoftware2024/controlinvernadero/pkg/persistence"
)

// Version information - set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)

var (
	configPath  = flag.String("config", "", "Configuration file path")
	host        = flag.String("host", "", "Controller host, \"auto\" to discover via mDNS")
	port        = flag.Int("port", 0, "Controller port")
	listen      = flag.String("listen", "", "HTTP listen address")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	logJournal  = flag.String("log-journal", "", "Journal logging: auto, on, off")
	tracePath   = flag.String("trace", "", "Event trace file (CBOR)")
	historyPath = flag.String("history", "", "History database path")
	console     = flag.Bool("interactive", false, "Start the operator console")
	advertise   = flag.Bool("advertise", false, "Announce the dashboard via mDNS")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("greenhouse %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
		return 0
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	lvl, _ := cfg.Log.SlogLevel()
	level.Set(lvl)
	logOut := &switchWriter{w: os.Stderr}
	logger := newLogger(logOut, level, cfg.Log.Journal)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger, logOut); err != nil {
		logger.Error("greenhouse stopped", "error", err)
		return 1
	}
	return 0
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	if *host != "" {
		cfg.Controller.Host = *host
	}
	if *port != 0 {
		cfg.Controller.Port = *port
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logJournal != "" {
		cfg.Log.Journal = *logJournal
	}
	if *tracePath != "" {
		cfg.Trace.Path = *tracePath
	}
	if *historyPath != "" {
		cfg.History.Path = *historyPath
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, logOut *switchWriter) error {
	conns := persistence.NewConnectionStore(persistence.NewKVStore(cfg.ConnectionFile))
	settings, err := resolveConnection(ctx, cfg, conns, logger)
	if err != nil {
		return err
	}

	client, err := device.NewClient(device.Config{
		Host:    settings.Host,
		Port:    settings.Port,
		Timeout: settings.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("create controller client: %w", err)
	}

	trace, closeTrace, err := newTraceLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	grace, err := cfg.Grace.Resolve()
	if err != nil {
		return err
	}
	engCfg := engineConfig(cfg, settings)
	engCfg.Grace = grace
	engCfg.Logger = logger
	engCfg.Trace = trace
	eng := engine.New(client, engCfg)

	var hist *history.Store
	var recorder *history.Recorder
	if cfg.History.Path != "" {
		hist, err = history.NewStore(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer hist.Close()
		recorder = history.NewRecorder(hist, cfg.History.Retention, logger)
		eng.Subscribe(recorder.Listen)
	}

	proxyTarget := ""
	if cfg.Server.Proxy {
		proxyTarget = client.BaseURL()
	}
	srv, err := NewServer(ServerConfig{
		Listen:      cfg.Server.Listen,
		Version:     Version,
		Engine:      eng,
		Connections: conns,
		Active:      settings,
		History:     hist,
		ProxyTarget: proxyTarget,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Stop()
	logger.Info("engine started", "controller", settings.Address(), "poll_interval", cfg.PollInterval,
		"command_timeout", engCfg.CommandTimeout)

	if *advertise {
		adv := discovery.NewAdvertiser()
		info := discovery.DashboardInfo{
			Instance: "greenhouse-" + uuid.NewString()[:8],
			Port:     listenPort(cfg.Server.Listen),
			Version:  Version,
		}
		if err := adv.Advertise(info); err != nil {
			logger.Warn("mDNS announcement failed", "error", err)
		} else {
			defer adv.Stop()
			logger.Info("dashboard announced", "instance", info.Instance)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}
	if *console {
		c, err := interactive.New(eng, client.Ping)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		logOut.Set(c.Stdout())
		g.Go(func() error {
			c.Run(gctx, cancel)
			return nil
		})
	}

	err = g.Wait()
	logOut.Set(os.Stderr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// resolveConnection returns the settings to connect with: the saved ones,
// overridden by the configuration, with "auto" resolved via mDNS.
func resolveConnection(ctx context.Context, cfg config.Config, conns *persistence.ConnectionStore, logger *slog.Logger) (persistence.ConnectionSettings, error) {
	settings, err := conns.LoadOrDefault()
	if err != nil {
		logger.Warn("failed to load saved connection settings, using defaults", "error", err)
	}
	if saved, _ := conns.Load(); saved == nil {
		// Nothing saved from the dashboard yet: the config file decides.
		settings.TimeoutMs = int(cfg.CommandTimeout / time.Millisecond)
	}
	if cfg.Controller.Port != 0 {
		settings.Port = cfg.Controller.Port
	}

	switch h := strings.TrimSpace(cfg.Controller.Host); {
	case strings.EqualFold(h, config.HostAuto):
		browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{
			Service: cfg.Discovery.Service,
			Domain:  cfg.Discovery.Domain,
			Logger:  logger,
		})
		logger.Info("searching for controller", "service", cfg.Discovery.Service, "timeout", cfg.Discovery.Timeout)
		found, err := discovery.Find(ctx, browser, cfg.Discovery.Timeout)
		if err != nil {
			return settings, fmt.Errorf("discover controller: %w", err)
		}
		addr, err := found.Address()
		if err != nil {
			return settings, fmt.Errorf("discover controller: %w", err)
		}
		settings.Host = addr
		settings.Port = found.Port
		logger.Info("controller discovered", "controller", found.String())
	case h != "":
		settings.Host = h
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// engineConfig returns the engine settings for the active connection. The
// command timeout is the one the operator saved with the connection, so the
// dispatcher and the HTTP client share the same bound.
func engineConfig(cfg config.Config, settings persistence.ConnectionSettings) engine.Config {
	return engine.Config{
		PollInterval:   cfg.PollInterval,
		CommandTimeout: settings.Timeout(),
	}
}

// newTraceLogger assembles the event trace. Events always go to the debug
// log and, if configured, to a CBOR file.
func newTraceLogger(cfg config.Config, logger *slog.Logger) (ghlog.Logger, func(), error) {
	loggers := []ghlog.Logger{ghlog.NewSlogAdapter(logger)}
	closeFn := func() {}

	if cfg.Trace.Path != "" {
		fl, err := ghlog.NewFileLogger(cfg.Trace.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("failed to close trace log", "error", err)
			}
		}
		logger.Info("tracing events", "path", cfg.Trace.Path)
	}

	return ghlog.WithSession(ghlog.NewMultiLogger(loggers...), uuid.NewString()), closeFn, nil
}

// listenPort extracts the port of a listen address, 0 if it has none.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}
