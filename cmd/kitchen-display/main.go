package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kitchen-display/internal/common/config"
	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display"
	"kitchen-display/internal/orderapi"
)

func main() {
	mode := flag.String("mode", "", "order-service | kitchen-display | waiter-display")
	port := flag.Int("port", 0, "http port for services that expose HTTP")
	cfgPath := flag.String("config", "", "path to config.yaml (auto-discovered when empty)")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := *cfgPath
	if path == "" {
		var err error
		if path, err = config.FindConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "no config.yaml found, pass --config")
			os.Exit(2)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}

	switch *mode {
	case "order-service":
		if *port == 0 {
			*port = 3000
		}
		lg.Info("service_started", map[string]any{"service": "order-service", "port": *port})
		if err := orderapi.Run(ctx, cfg, *port); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "kitchen-display":
		lg.Info("service_started", map[string]any{"service": "kitchen-display"})
		if err := display.Run(ctx, cfg, "kitchen"); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "waiter-display":
		lg.Info("service_started", map[string]any{"service": "waiter-display"})
		if err := display.Run(ctx, cfg, "waiter"); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: order-service | kitchen-display | waiter-display")
		os.Exit(2)
	}
}
