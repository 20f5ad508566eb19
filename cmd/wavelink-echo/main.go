// Command wavelink-echo runs a wavelink echo endpoint.
//
// The server answers every binary frame with the identical frame and
// responds to ping control frames with pongs, which makes it a complete
// peer for wavelink-client and for exercising reconnection behavior
// (stop and restart it while a client is attached).
//
// Usage:
//
//	wavelink-echo [flags]
//
// Flags:
//
//	-addr string        Listen address (default "127.0.0.1:8473")
//	-advertise string   mDNS instance name; empty disables advertising
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Start on the default port
//	wavelink-echo
//
//	# Start on any free port and announce it on the local network
//	wavelink-echo -addr :0 -advertise "Test Hub"
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/wavelink-protocol/wavelink-go/pkg/discovery"
	"github.com/wavelink-protocol/wavelink-go/pkg/transport"
	"github.com/wavelink-protocol/wavelink-go/pkg/version"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8473", "Listen address")
	advertise := flag.String("advertise", "", "mDNS instance name; empty disables advertising")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogging(*logLevel)

	srv := transport.NewServer(transport.ServerConfig{Addr: *addr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	slog.Info("echo endpoint listening", "url", srv.URL())

	var advertiser *discovery.Advertiser
	if *advertise != "" {
		advertiser = discovery.NewAdvertiser(discovery.DefaultAdvertiserConfig())

		port := listenPort(srv.Addr())
		err := advertiser.Advertise(&discovery.EndpointInfo{
			InstanceName: *advertise,
			Port:         port,
			Path:         "/",
			Version:      version.Current,
			Name:         *advertise,
		})
		if err != nil {
			slog.Error("failed to advertise endpoint", "error", err)
			os.Exit(1)
		}
		slog.Info("advertising endpoint", "instance", *advertise, "port", port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	if advertiser != nil {
		advertiser.Stop()
	}
	if err := srv.Stop(); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
}

// listenPort extracts the bound TCP port from the server's address.
func listenPort(addr net.Addr) uint16 {
	if addr == nil {
		return 0
	}
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
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
