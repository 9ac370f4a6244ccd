// Command racectl is the slot-car race control daemon. It drives the start
// light sequence, turns trackside sensor events into lap times and streams
// race state to connected dashboards.
package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trackside/racectl/internal/api"
	"github.com/trackside/racectl/internal/config"
	"github.com/trackside/racectl/internal/events"
	"github.com/trackside/racectl/internal/models"
	"github.com/trackside/racectl/internal/mqtt"
	"github.com/trackside/racectl/internal/race"
	"github.com/trackside/racectl/internal/zeroconf"
)

//go:embed web
var webFiles embed.FS

func main() {
	var (
		addr  = flag.String("addr", "", "HTTP listen address (overrides RACECTL_ADDR)")
		debug = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *debug {
		cfg.Debug = true
	}

	// Configure logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Event bus for viewer fan-out
	bus := events.NewBus()

	// engRef is used by the sensor adapter to forward lap triggers. It is
	// set right after engine creation; triggers only arrive once the broker
	// connection is up, which happens later.
	var engRef *race.Engine
	adapter := mqtt.New(mqtt.Options{
		BrokerURL:  cfg.BrokerURL,
		ClientID:   cfg.ClientID,
		StartTopic: cfg.StartTopic,
		Topics:     cfg.SensorTopics(),
	}, mqtt.SinkFunc(func(track int, at time.Time) (models.Lap, error) {
		return engRef.LapTrigger(track, at)
	}), nil)

	// Race engine
	eng := race.New(race.Options{
		Tracks: []int{1, 2},
		MinLap: cfg.MinLap,
		Sequence: race.Sequencer{
			Lights:   cfg.Lights,
			Interval: cfg.LightInterval,
			HoldMin:  cfg.HoldMin,
			HoldMax:  cfg.HoldMax,
		},
	}, bus, adapter)
	engRef = eng

	// Sensor bus adapter
	go func() {
		if err := adapter.Run(ctx); err != nil {
			slog.Error("mqtt adapter stopped", "err", err)
		}
	}()

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "racectl"
	}
	port := 8000
	if parts := strings.SplitN(cfg.Addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	router := api.NewRouter(eng, bus)

	// Embedded dashboard
	webFS, err := fs.Sub(webFiles, "web")
	if err != nil {
		slog.Error("failed to load web files", "err", err)
		os.Exit(1)
	}
	router.(*chi.Mux).Handle("/*", http.FileServer(http.FS(webFS)))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE and WebSocket)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("racectl listening", "addr", cfg.Addr, "broker", cfg.BrokerURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	eng.Close()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
