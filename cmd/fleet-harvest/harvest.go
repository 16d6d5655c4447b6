package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/rigpulse/rigpulse/pkg/antminer"
	"github.com/rigpulse/rigpulse/pkg/database"
	"github.com/rigpulse/rigpulse/pkg/discovery"
	"github.com/rigpulse/rigpulse/pkg/miner"
	"github.com/rigpulse/rigpulse/pkg/transport"
)

// Harvester orchestrates collection passes across the fleet and writes
// the results through the repository.
type Harvester struct {
	repo    database.Repository
	scanner *discovery.Scanner
	probers []miner.Prober
	config  *Config

	// breakers holds one circuit breaker per device IP so a dead rig
	// stops eating its collection timeout every cycle.
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHarvester creates a new harvester.
func NewHarvester(repo database.Repository, probers []miner.Prober, cfg *Config) *Harvester {
	return &Harvester{
		repo: repo,
		scanner: discovery.NewScanner(probers,
			discovery.WithScanTimeout(cfg.Timeout),
			discovery.WithScanConcurrency(cfg.Concurrency)),
		probers:  probers,
		config:   cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (h *Harvester) breaker(ip string) *gobreaker.CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	cb, ok := h.breakers[ip]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    ip,
			Timeout: 2 * h.config.HarvestInterval,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		})
		h.breakers[ip] = cb
	}
	return cb
}

// HarvestNetwork scans a network and harvests all discovered devices.
// Returns the device IDs that were successfully contacted.
func (h *Harvester) HarvestNetwork(ctx context.Context, cidr string) (map[int64]bool, error) {
	log.Printf("Scanning network %s...", cidr)

	result, err := h.scanner.ScanCIDR(ctx, cidr)
	if err != nil {
		return nil, fmt.Errorf("failed to scan network: %w", err)
	}

	log.Printf("Found %d devices (%d of %d hosts responsive, %s)",
		len(result.Devices), result.ResponsiveHosts, result.ScannedIPs,
		result.Duration.Round(time.Millisecond))

	for host, perr := range result.Errors {
		log.Printf("  - %s: probe failed: %v", host, perr)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, h.config.Concurrency)
	var mu sync.Mutex
	successIDs := make(map[int64]bool)

	for _, dev := range result.Devices {
		log.Printf("  - %s (%s %s)", dev.IP, dev.Dialect, dev.Identity.MinerType)

		wg.Add(1)
		go func(dev discovery.Device) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			id, err := h.harvestOne(ctx, dev.IP, dev.Handle, &dev)
			if err != nil {
				log.Printf("[%s] ERROR: %v", dev.IP, err)
				return
			}
			log.Printf("[%s] OK", dev.IP)
			mu.Lock()
			successIDs[id] = true
			mu.Unlock()
		}(dev)
	}
	wg.Wait()

	return successIDs, nil
}

// HarvestHosts harvests specific devices by IP, identifying each first.
// Returns the device IDs that were successfully contacted.
func (h *Harvester) HarvestHosts(ctx context.Context, ips []string) (map[int64]bool, error) {
	log.Printf("Harvesting %d devices...", len(ips))

	var wg sync.WaitGroup
	sem := make(chan struct{}, h.config.Concurrency)
	var mu sync.Mutex
	var successCount, failCount int
	successIDs := make(map[int64]bool)

	for _, ip := range ips {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			id, err := h.identifyAndHarvest(ctx, ip)
			if err != nil {
				log.Printf("[%s] ERROR: %v", ip, err)
				mu.Lock()
				failCount++
				mu.Unlock()
				return
			}
			log.Printf("[%s] OK", ip)
			mu.Lock()
			successCount++
			successIDs[id] = true
			mu.Unlock()
		}(ip)
	}

	wg.Wait()
	log.Printf("Harvest complete: %d succeeded, %d failed", successCount, failCount)
	return successIDs, nil
}

func (h *Harvester) identifyAndHarvest(ctx context.Context, ip string) (int64, error) {
	dev, err := h.scanner.Identify(ctx, ip)
	if err != nil {
		return 0, fmt.Errorf("failed to identify device: %w", err)
	}
	return h.harvestOne(ctx, ip, dev.Handle, dev)
}

// harvestOne runs a collection pass against one device behind its
// circuit breaker and stores the snapshot.
func (h *Harvester) harvestOne(ctx context.Context, ip string, handle miner.Handle, dev *discovery.Device) (int64, error) {
	id, err := h.breaker(ip).Execute(func() (any, error) {
		return h.collectAndStore(ctx, ip, handle, dev)
	})
	if err != nil {
		return 0, err
	}
	return id.(int64), nil
}

func (h *Harvester) collectAndStore(ctx context.Context, ip string, handle miner.Handle, dev *discovery.Device) (int64, error) {
	passCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	takenAt := time.Now()
	snap, report, err := handle.Collect(passCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to collect: %w", err)
	}
	for _, f := range report.Failed() {
		log.Printf("[%s] warning: field %s: %v", ip, f, report[f])
	}

	record := &database.Device{
		IP:      ip,
		MAC:     snap.MAC,
		Model:   handle.Model(),
		Dialect: dev.Dialect,
	}
	if record.MAC == "" {
		record.MAC = dev.Identity.MAC
	}
	record.Hostname = dev.Identity.Hostname
	if record.Hostname == "" {
		record.Hostname = snap.Hostname
	}
	record.FirmwareVersion = snap.FirmwareVersion
	if record.FirmwareVersion == "" {
		record.FirmwareVersion = dev.Identity.FirmwareVersion
	}

	deviceID, err := h.repo.UpsertDevice(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert device: %w", err)
	}

	stored := buildStored(snap, report, takenAt)
	if _, err := h.repo.InsertSnapshot(ctx, deviceID, takenAt, stored); err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return deviceID, nil
}

// RunDaemon runs continuous harvesting until the context is canceled.
func (h *Harvester) RunDaemon(ctx context.Context, networks []string) error {
	log.Printf("Starting daemon mode (interval: %s)", h.config.HarvestInterval)

	ticker := time.NewTicker(h.config.HarvestInterval)
	defer ticker.Stop()

	if err := h.harvestAll(ctx, networks); err != nil {
		log.Printf("Initial harvest error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Daemon stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := h.harvestAll(ctx, networks); err != nil {
				log.Printf("Harvest cycle error: %v", err)
			}
		}
	}
}

// harvestAll runs one daemon cycle: scan the configured networks, then
// re-check known devices the scans missed, then mark the rest offline.
func (h *Harvester) harvestAll(ctx context.Context, networks []string) error {
	log.Printf("Starting harvest cycle at %s", time.Now().Format(time.RFC3339))

	successful := make(map[int64]bool)

	for _, network := range networks {
		ids, err := h.scanWithRetry(ctx, network)
		if err != nil {
			log.Printf("Error scanning %s: %v", network, err)
			continue
		}
		for id := range ids {
			successful[id] = true
		}
	}

	devices, err := h.repo.ListDevices(ctx)
	if err != nil {
		log.Printf("Error listing devices: %v", err)
		return nil
	}

	var missed []string
	for _, d := range devices {
		if !successful[d.ID] {
			missed = append(missed, d.IP)
		}
	}
	if len(missed) > 0 {
		log.Printf("Re-checking %d known devices missed by the scan...", len(missed))
		ids, _ := h.HarvestHosts(ctx, missed)
		for id := range ids {
			successful[id] = true
		}
	}

	offlineCount := 0
	for _, d := range devices {
		if !successful[d.ID] && d.Online {
			if err := h.repo.SetOnline(ctx, d.ID, false); err != nil {
				log.Printf("Warning: failed to mark device %d offline: %v", d.ID, err)
				continue
			}
			offlineCount++
		}
	}
	if offlineCount > 0 {
		log.Printf("Marked %d devices as offline", offlineCount)
	}

	return nil
}

// scanWithRetry wraps HarvestNetwork in exponential backoff; a scan only
// fails outright on CIDR parse errors or early context cancellation.
func (h *Harvester) scanWithRetry(ctx context.Context, network string) (map[int64]bool, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = h.config.HarvestInterval / 2

	var ids map[int64]bool
	err := backoff.Retry(func() error {
		var err error
		ids, err = h.HarvestNetwork(ctx, network)
		if err != nil {
			log.Printf("Scan %s failed, retrying: %v", network, err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListDevices lists all known devices from the database.
func (h *Harvester) ListDevices(ctx context.Context) error {
	devices, err := h.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices in database")
		return nil
	}

	fmt.Printf("%-8s %-16s %-18s %-22s %s\n", "STATUS", "IP", "DIALECT", "MODEL", "LAST SEEN")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, d := range devices {
		status := "OFFLINE"
		if d.Online {
			status = "ONLINE"
		}
		fmt.Printf("%-8s %-16s %-18s %-22s %s\n",
			status,
			d.IP,
			d.Dialect,
			truncate(d.Model, 22),
			d.LastSeenAt.Format("2006-01-02 15:04"),
		)
	}

	return nil
}

// ShowDevice shows the latest stored snapshot for one device.
func (h *Harvester) ShowDevice(ctx context.Context, ip string) error {
	d, err := h.repo.GetDeviceByIP(ctx, ip)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	fmt.Printf("=== Device: %s ===\n", d.IP)
	fmt.Printf("Model:      %s\n", d.Model)
	fmt.Printf("Dialect:    %s\n", d.Dialect)
	fmt.Printf("Firmware:   %s\n", d.FirmwareVersion)
	fmt.Printf("MAC:        %s\n", d.MAC)
	fmt.Printf("Hostname:   %s\n", d.Hostname)
	fmt.Printf("Last Seen:  %s\n", d.LastSeenAt.Format(time.RFC3339))

	stored, err := h.repo.LatestSnapshot(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	if stored == nil {
		fmt.Println("\nNo snapshots stored yet")
		return nil
	}

	s := stored.Snapshot
	fmt.Printf("\n=== Snapshot (%s) ===\n", s.TakenAt.Format(time.RFC3339))
	if s.Hashrate != nil {
		fmt.Printf("Hashrate:   %.2f MH/s\n", *s.Hashrate)
	}
	if s.ExpectedHashrate != nil {
		fmt.Printf("Expected:   %.2f MH/s\n", *s.ExpectedHashrate)
	}
	if s.UptimeSeconds != nil {
		fmt.Printf("Uptime:     %s\n", formatDuration(time.Duration(*s.UptimeSeconds)*time.Second))
	}
	if s.IsMining != nil {
		fmt.Printf("Mining:     %t\n", *s.IsMining)
	}
	if s.FaultLight != nil {
		fmt.Printf("Fault LED:  %t\n", *s.FaultLight)
	}
	if s.FailedFields != "" {
		fmt.Printf("Failed:     %s\n", s.FailedFields)
	}

	if len(stored.Boards) > 0 {
		fmt.Printf("\n=== Boards ===\n")
		for _, b := range stored.Boards {
			if b.Missing {
				fmt.Printf("Board %d: missing\n", b.Slot)
				continue
			}
			line := fmt.Sprintf("Board %d: %d chips", b.Slot, b.Chips)
			if b.Hashrate != nil {
				line += fmt.Sprintf(", %.2f MH/s", *b.Hashrate)
			}
			if b.Temp != nil {
				line += fmt.Sprintf(", PCB %.1f°C", *b.Temp)
			}
			if b.ChipTemp != nil {
				line += fmt.Sprintf(", chip %.1f°C", *b.ChipTemp)
			}
			if b.Serial != "" {
				line += fmt.Sprintf(", sn %s", b.Serial)
			}
			fmt.Println(line)
		}
	}

	if len(stored.Fans) > 0 {
		fmt.Printf("\n=== Fans ===\n")
		for _, f := range stored.Fans {
			fmt.Printf("Fan %d: %d RPM\n", f.Slot, f.SpeedRPM)
		}
	}

	return nil
}

// createProbers builds the dialect probers, modern first so X19 devices
// are matched before falling through to the legacy heuristics.
func createProbers(cfg *Config) []miner.Prober {
	creds := transport.Credentials{Username: cfg.Username, Password: cfg.Password}
	return []miner.Prober{
		antminer.NewProber(antminer.DialectModern,
			antminer.WithProberTimeout(cfg.Timeout),
			antminer.WithProberCredentials(creds)),
		antminer.NewProber(antminer.DialectLegacy,
			antminer.WithProberTimeout(cfg.Timeout),
			antminer.WithProberCredentials(creds)),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
