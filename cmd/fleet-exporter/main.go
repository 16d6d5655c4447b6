// fleet-exporter serves Antminer fleet telemetry as Prometheus metrics.
// It rescans the configured networks periodically and runs one collection
// pass per device on every scrape.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rigpulse/rigpulse/pkg/antminer"
	"github.com/rigpulse/rigpulse/pkg/discovery"
	"github.com/rigpulse/rigpulse/pkg/exporter"
	"github.com/rigpulse/rigpulse/pkg/miner"
	"github.com/rigpulse/rigpulse/pkg/transport"
)

const usage = `fleet-exporter - Prometheus exporter for Antminer telemetry

Usage:
  fleet-exporter <network> [network...]

Environment Variables:
  EXPORTER_LISTEN      Listen address (default: :9356)
  MINER_USERNAME       Web API username (default: root)
  MINER_PASSWORD       Web API password (default: root)
  SCAN_INTERVAL        Device rediscovery interval (default: 5m)
  SCRAPE_TIMEOUT       Per-device collection timeout (default: 10s)
`

// fleet maintains the discovered handle set the collector reads from.
type fleet struct {
	scanner  *discovery.Scanner
	networks []string

	mu      sync.RWMutex
	handles []miner.Handle
}

func (f *fleet) devices() []miner.Handle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.handles
}

func (f *fleet) rescan(ctx context.Context) {
	var handles []miner.Handle
	for _, network := range f.networks {
		result, err := f.scanner.ScanCIDR(ctx, network)
		if err != nil {
			log.Printf("scan %s: %v", network, err)
			continue
		}
		for _, dev := range result.Devices {
			handles = append(handles, dev.Handle)
		}
	}
	log.Printf("discovered %d devices", len(handles))

	f.mu.Lock()
	f.handles = handles
	f.mu.Unlock()
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}
	networks := os.Args[1:]

	listen := envOr("EXPORTER_LISTEN", ":9356")
	creds := transport.Credentials{
		Username: envOr("MINER_USERNAME", "root"),
		Password: envOr("MINER_PASSWORD", "root"),
	}
	scanInterval := envDuration("SCAN_INTERVAL", 5*time.Minute)
	scrapeTimeout := envDuration("SCRAPE_TIMEOUT", 10*time.Second)

	probers := []miner.Prober{
		antminer.NewProber(antminer.DialectModern,
			antminer.WithProberTimeout(scrapeTimeout),
			antminer.WithProberCredentials(creds)),
		antminer.NewProber(antminer.DialectLegacy,
			antminer.WithProberTimeout(scrapeTimeout),
			antminer.WithProberCredentials(creds)),
	}

	f := &fleet{
		scanner:  discovery.NewScanner(probers, discovery.WithScanTimeout(scrapeTimeout)),
		networks: networks,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.rescan(ctx)
	go func() {
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.rescan(ctx)
			}
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(exporter.NewFleetCollector(f.devices, scrapeTimeout))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: listen, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Networks: %s", strings.Join(networks, ", "))
	log.Printf("Listening on %s", listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
