// fleet-harvest is a CLI tool for discovering Antminer devices and
// collecting their telemetry into an SQLite database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rigpulse/rigpulse/pkg/database"
)

const usage = `fleet-harvest - Antminer telemetry collection tool

Usage:
  fleet-harvest <command> [arguments]

Commands:
  scan <network>       Scan a network (CIDR) and harvest all discovered devices
                       Example: fleet-harvest scan 192.168.1.0/24

  harvest <ip> [ip...] Harvest telemetry from specific devices
                       Example: fleet-harvest harvest 192.168.1.27 192.168.1.28

  daemon [networks...] Run continuous harvesting (use Ctrl+C to stop)
                       Example: fleet-harvest daemon 192.168.1.0/24

  list                 List all known devices in the database

  show <ip>            Show the latest snapshot for a specific device
                       Example: fleet-harvest show 192.168.1.27

Environment Variables:
  RIGPULSE_DB          SQLite database path (default: rigpulse.db)
  MINER_USERNAME       Web API username (default: root)
  MINER_PASSWORD       Web API password (default: root)
  HARVEST_INTERVAL     Daemon polling interval (default: 60s)
  HARVEST_CONCURRENCY  Parallel harvest workers (default: 25)
  HARVEST_TIMEOUT      Per-device timeout (default: 10s)
  NETWORK_CIDR         Comma-separated CIDRs for daemon mode (e.g., 10.40.36.0/24,10.40.37.0/24)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg := LoadConfig()

	repo, err := database.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	harvester := NewHarvester(repo, createProbers(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal...")
		cancel()
	}()

	cmd := os.Args[1]
	switch cmd {
	case "scan":
		runScan(ctx, harvester, cfg)
	case "harvest":
		runHarvest(ctx, harvester)
	case "daemon":
		runDaemon(ctx, harvester, cfg)
	case "list":
		runList(ctx, harvester)
	case "show":
		runShow(ctx, harvester)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runScan(ctx context.Context, h *Harvester, cfg *Config) {
	var network string
	if len(os.Args) >= 3 {
		network = os.Args[2]
	} else if len(cfg.NetworkCIDRs) > 0 {
		network = cfg.NetworkCIDRs[0]
	} else {
		fmt.Fprintln(os.Stderr, "Error: network CIDR required")
		fmt.Fprintln(os.Stderr, "Usage: fleet-harvest scan <network>")
		os.Exit(1)
	}

	start := time.Now()
	if _, err := h.HarvestNetwork(ctx, network); err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	log.Printf("Scan completed in %s", time.Since(start).Round(time.Millisecond))
}

func runHarvest(ctx context.Context, h *Harvester) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Error: at least one IP address required")
		fmt.Fprintln(os.Stderr, "Usage: fleet-harvest harvest <ip> [ip...]")
		os.Exit(1)
	}

	start := time.Now()
	if _, err := h.HarvestHosts(ctx, os.Args[2:]); err != nil {
		log.Fatalf("Harvest failed: %v", err)
	}
	log.Printf("Harvest completed in %s", time.Since(start).Round(time.Millisecond))
}

func runDaemon(ctx context.Context, h *Harvester, cfg *Config) {
	var networks []string
	if len(os.Args) >= 3 {
		networks = os.Args[2:]
	} else if len(cfg.NetworkCIDRs) > 0 {
		networks = cfg.NetworkCIDRs
	} else {
		log.Println("Warning: No networks specified, will only harvest known devices from database")
	}

	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("Networks: %v", networks)
	log.Printf("Interval: %s", cfg.HarvestInterval)
	log.Printf("Concurrency: %d", cfg.Concurrency)

	if err := h.RunDaemon(ctx, networks); err != nil && err != context.Canceled {
		log.Fatalf("Daemon error: %v", err)
	}
}

func runList(ctx context.Context, h *Harvester) {
	if err := h.ListDevices(ctx); err != nil {
		log.Fatalf("List failed: %v", err)
	}
}

func runShow(ctx context.Context, h *Harvester) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Error: IP address required")
		fmt.Fprintln(os.Stderr, "Usage: fleet-harvest show <ip>")
		os.Exit(1)
	}

	if err := h.ShowDevice(ctx, os.Args[2]); err != nil {
		log.Fatalf("Show failed: %v", err)
	}
}
