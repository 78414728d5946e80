package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/airpnp/airpnp/bridge"
	"github.com/airpnp/airpnp/config"
	"github.com/airpnp/airpnp/store"
	"github.com/airpnp/airpnp/web"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg := config.LoadConfig(*configPath)

	if lvl, err := log.ParseLevel(cfg.GetLogLevel()); err == nil {
		log.SetLevel(lvl)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer cancel()

	opts := []bridge.Option{
		bridge.WithBasePort(cfg.GetBasePort()),
		bridge.WithSearchInterval(time.Duration(cfg.GetSearchInterval()) * time.Second),
		bridge.WithLocalIP(cfg.GetInterface()),
		bridge.WithAirPlayModel(cfg.GetAirPlayModel()),
		bridge.WithAirPlayFeatures(cfg.GetAirPlayFeatures()),
	}

	if dir := cfg.GetStorageDir(); dir != "" {
		db, err := store.InitDB(dir)
		if err != nil {
			log.Fatalf("❌ Cannot open database in %s: %v", dir, err)
		}
		defer db.Close()
		opts = append(opts, bridge.WithStore(db))
	}

	b := bridge.New(opts...)

	if cfg.GetWebEnabled() {
		w := web.NewServer(cfg.GetWebPort(), b)
		if err := w.Start(); err != nil {
			log.Fatalf("❌ Cannot start interactive web: %v", err)
		}
		defer w.Stop(context.Background())
	}

	log.Infof("✅ AirPnp started")
	if err := b.Run(ctx); err != nil {
		log.Fatalf("❌ bridge error: %v", err)
	}
}
