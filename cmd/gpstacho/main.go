package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChriR/GPS-Speedo-Logger/internal/config"
	"github.com/ChriR/GPS-Speedo-Logger/internal/web"
)

func main() {
	var configPath, legacyPath, summaryPath string
	flag.StringVar(&configPath, "config", "./gpstacho.yaml", "Path to YAML config")
	flag.StringVar(&legacyPath, "legacy", "", "Optional logger.cfg of the SD-card firmware applied on top of the config")
	flag.StringVar(&summaryPath, "capture-summary", "", "Print a summary of a receiver capture and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printCaptureSummary(os.Stdout, summaryPath, ""); err != nil {
			log.Fatalf("capture summary failed: %v", err)
		}
		return
	}

	logs := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg, savePath, err := loadConfig(configPath, legacyPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, savePath, logs)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer rt.Close()

	log.Printf("gpstacho starting source=%s web=%s", cfg.GPS.Source, cfg.Web.Listen)
	if err := web.Serve(ctx, cfg.Web.Listen, rt.webOptions()); err != nil && ctx.Err() == nil {
		log.Printf("web server stopped: %v", err)
	}
	log.Printf("gpstacho stopping")
}

// loadConfig reads the YAML config and applies an optional legacy file. A
// missing YAML file means defaults; threshold changes are then not
// persisted, so the returned save path is empty.
func loadConfig(path, legacyPath string) (config.Config, string, error) {
	cfg, err := config.Load(path)
	savePath := path
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("config %s not found, using defaults", path)
		cfg, err = config.Default(), nil
		savePath = ""
	}
	if err != nil {
		return config.Config{}, "", err
	}
	if legacyPath == "" {
		return cfg, savePath, nil
	}

	f, err := os.Open(legacyPath)
	if err != nil {
		return config.Config{}, "", err
	}
	defer f.Close()
	cfg, err = config.LoadLegacy(f, cfg)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("legacy config %s: %w", legacyPath, err)
	}
	log.Printf("legacy config applied from %s", legacyPath)
	return cfg, savePath, nil
}
