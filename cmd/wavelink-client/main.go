// Command wavelink-client connects a resilient session to a wavelink
// endpoint.
//
// The client keeps the session alive across endpoint restarts and
// network flaps, printing every state transition. With -interactive it
// offers a command prompt for sending messages; without it, it connects
// and runs until interrupted.
//
// Usage:
//
//	wavelink-client [flags]
//
// Flags:
//
//	-endpoint string    ws:// or wss:// endpoint URI
//	-discover string    Find the endpoint by mDNS instance name instead
//	-config string      YAML configuration file path
//	-token string       Bearer token for the handshake
//	-interactive        Enable the interactive command prompt
//	-log-file string    Capture session events to a CBOR file
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-keepalive duration Keepalive probe interval (default 30s)
//	-max-attempts int   Reconnection attempt limit (default 5)
//
// Examples:
//
//	# Connect to a local echo endpoint with the prompt
//	wavelink-client -endpoint ws://127.0.0.1:8473/ -interactive
//
//	# Find the endpoint via mDNS and capture traffic
//	wavelink-client -discover "Test Hub" -log-file session.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wavelink-protocol/wavelink-go/cmd/wavelink-client/interactive"
	"github.com/wavelink-protocol/wavelink-go/pkg/connection"
	"github.com/wavelink-protocol/wavelink-go/pkg/discovery"
	"github.com/wavelink-protocol/wavelink-go/pkg/log"
	"github.com/wavelink-protocol/wavelink-go/pkg/reachability"
	"github.com/wavelink-protocol/wavelink-go/pkg/session"
	"github.com/wavelink-protocol/wavelink-go/pkg/transport"
	"github.com/wavelink-protocol/wavelink-go/pkg/version"
)

// FileConfig is the YAML configuration file schema.
type FileConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Token       string        `yaml:"token"`
	Keepalive   time.Duration `yaml:"keepalive"`
	MaxAttempts int           `yaml:"max_attempts"`
	LogFile     string        `yaml:"log_file"`
}

func main() {
	endpoint := flag.String("endpoint", "", "ws:// or wss:// endpoint URI")
	discover := flag.String("discover", "", "Find the endpoint by mDNS instance name")
	configFile := flag.String("config", "", "YAML configuration file path")
	token := flag.String("token", "", "Bearer token for the handshake")
	interactiveMode := flag.Bool("interactive", false, "Enable the interactive command prompt")
	logFile := flag.String("log-file", "", "Capture session events to a CBOR file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	keepalive := flag.Duration("keepalive", 0, "Keepalive probe interval")
	maxAttempts := flag.Int("max-attempts", 0, "Reconnection attempt limit")
	flag.Parse()

	setupLogging(*logLevel)

	cfg := FileConfig{}
	if *configFile != "" {
		if err := loadConfigFile(*configFile, &cfg); err != nil {
			slog.Error("failed to load config file", "path", *configFile, "error", err)
			os.Exit(1)
		}
	}

	// Flags override file settings.
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *keepalive > 0 {
		cfg.Keepalive = *keepalive
	}
	if *maxAttempts > 0 {
		cfg.MaxAttempts = *maxAttempts
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	if *discover != "" {
		url, err := discoverEndpoint(*discover)
		if err != nil {
			slog.Error("endpoint discovery failed", "instance", *discover, "error", err)
			os.Exit(1)
		}
		slog.Info("discovered endpoint", "instance", *discover, "url", url)
		cfg.Endpoint = url
	}

	if cfg.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "either -endpoint, -discover, or an endpoint in -config is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, closeLogger, err := buildLogger(cfg.LogFile)
	if err != nil {
		slog.Error("failed to open log file", "path", cfg.LogFile, "error", err)
		os.Exit(1)
	}
	defer closeLogger()

	var creds transport.CredentialProvider
	if cfg.Token != "" {
		creds = transport.StaticToken(cfg.Token)
	}

	monitor := reachability.NewInterfaceMonitor(reachability.DefaultPollInterval)

	s, err := session.New(session.Config{
		Endpoint:             cfg.Endpoint,
		MaxReconnectAttempts: cfg.MaxAttempts,
		KeepaliveInterval:    cfg.Keepalive,
		Credentials:          creds,
		Monitor:              monitor,
		Logger:               logger,
	})
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	s.OnConnectionStateChanged(func(oldState, newState connection.State) {
		slog.Info("connection state changed", "from", oldState.String(), "to", newState.String())
	})
	s.OnReconnectExhausted(func() {
		slog.Warn("reconnection attempts exhausted; use connect to try again")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *interactiveMode {
		cli, err := interactive.New(s)
		if err != nil {
			slog.Error("failed to start interactive mode", "error", err)
			os.Exit(1)
		}
		cli.Run(ctx, cancel)
		return
	}

	if err := s.Connect(ctx); err != nil {
		slog.Warn("initial connect failed; reconnecting in background", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
}

// loadConfigFile reads a YAML configuration file.
func loadConfigFile(path string, cfg *FileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// discoverEndpoint resolves an mDNS instance name to an endpoint URI.
func discoverEndpoint(instanceName string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), discovery.BrowseTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	svc, err := browser.FindByName(ctx, instanceName)
	if err != nil {
		return "", err
	}

	if svc.Version != "" {
		remote, err := version.Parse(svc.Version)
		if err == nil {
			local, _ := version.Parse(version.Current)
			if !local.Compatible(remote) {
				return "", fmt.Errorf("endpoint speaks incompatible protocol version %s", svc.Version)
			}
		}
	}

	return svc.URL(), nil
}

// buildLogger assembles the session event logger: console always, plus a
// CBOR capture file when requested.
func buildLogger(path string) (log.Logger, func(), error) {
	console := log.NewSlogAdapter(slog.Default())
	if path == "" {
		return console, func() {}, nil
	}

	file, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return log.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}

// setupLogging configures the default slog logger.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
