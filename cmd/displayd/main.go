package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocakbasi/order-sync/internal/clients"
	"github.com/ocakbasi/order-sync/internal/config"
	"github.com/ocakbasi/order-sync/internal/notify"
	"github.com/ocakbasi/order-sync/internal/surfaces"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("DISPLAY_CONFIG"), "path to display config YAML")
		logLevel   = flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
		kitchen    = flag.Bool("kitchen", false, "run the kitchen surface")
		salon      = flag.Bool("salon", false, "run the salon surface")
		trackOrder = flag.String("track", "", "run the customer track surface for this order ID")
		muted      = flag.Bool("muted", false, "start with audible alerts muted")
	)
	flag.Parse()

	cfg, err := config.LoadDisplayConfig(*configPath)

	if err != nil {
		log.Fatalf("Failed to load display configuration: %v", err)
	}

	if !*kitchen && !*salon && *trackOrder == "" {
		// A box with nothing selected is almost always the kitchen screen
		*kitchen = true
	}

	l := logger.NewLogger(*logLevel)
	l.Info("Starting display daemon",
		"store", cfg.StoreBaseURL,
		"kitchen", *kitchen,
		"salon", *salon,
		"trackOrder", *trackOrder)

	store := clients.NewStoreClient(cfg.StoreBaseURL, l)

	dispatcher := notify.NewDispatcher(
		notify.NewLogSink("audible", l),
		notify.NewLogSink("visual", l),
		notify.NewLogSink("native", l),
		notify.GrantedPermission{},
		l,
	)
	dispatcher.SetMuted(*muted)

	var stops []func()

	if *kitchen {
		surface := surfaces.NewKitchenSurface(store, dispatcher, cfg, l)
		surface.Start(cfg)
		stops = append(stops, surface.Stop)
	}

	if *salon {
		surface := surfaces.NewSalonSurface(store, dispatcher, cfg, l)
		surface.Start(cfg)
		stops = append(stops, surface.Stop)
	}

	if *trackOrder != "" {
		surface := surfaces.NewTrackSurface(store, dispatcher, *trackOrder, cfg, l)
		surface.Start(cfg)
		stops = append(stops, surface.Stop)
	}

	// Graceful shutdown via interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down display daemon...")

	for _, stop := range stops {
		stop()
	}

	l.Info("Display daemon exiting")
}

func envOr(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}
