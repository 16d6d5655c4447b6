// Package exporter exposes fleet telemetry as Prometheus metrics. Each
// scrape runs one collection pass per device; per-field failures inside
// a pass only suppress the affected series.
package exporter

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rigpulse/rigpulse/pkg/miner"
	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

const namespace = "rigpulse"

// FleetCollector implements prometheus.Collector over a set of device
// handles. The handle list is supplied by a callback so the caller can
// refresh it from discovery between scrapes.
type FleetCollector struct {
	devices func() []miner.Handle
	timeout time.Duration

	hashrate     *prometheus.Desc
	expectedRate *prometheus.Desc
	uptime       *prometheus.Desc
	isMining     *prometheus.Desc
	faultLight   *prometheus.Desc
	envTemp      *prometheus.Desc
	wattage      *prometheus.Desc
	errorCount   *prometheus.Desc

	boardHashrate *prometheus.Desc
	boardTemp     *prometheus.Desc
	boardChipTemp *prometheus.Desc
	boardChips    *prometheus.Desc
	boardMissing  *prometheus.Desc
	fanSpeed      *prometheus.Desc

	scrapeStatus *prometheus.GaugeVec
}

// NewFleetCollector builds a collector over the handles returned by
// devices. Each scrape is bounded by timeout per device.
func NewFleetCollector(devices func() []miner.Handle, timeout time.Duration) *FleetCollector {
	deviceLabels := []string{"host", "model"}
	boardLabels := []string{"host", "model", "slot"}

	desc := func(name, help string, labels []string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}

	return &FleetCollector{
		devices: devices,
		timeout: timeout,

		hashrate:     desc("hashrate_mhs", "Current device hashrate in MH/s", deviceLabels),
		expectedRate: desc("expected_hashrate_mhs", "Factory expected hashrate in MH/s", deviceLabels),
		uptime:       desc("uptime_seconds", "Seconds since the mining process started", deviceLabels),
		isMining:     desc("is_mining", "1 when the device is actively hashing", deviceLabels),
		faultLight:   desc("fault_light", "1 when the locator light is on", deviceLabels),
		envTemp:      desc("env_temp_celsius", "Intake air temperature in degrees Celsius", deviceLabels),
		wattage:      desc("wattage_watts", "Current power draw in watts", deviceLabels),
		errorCount:   desc("device_errors", "Number of error codes the firmware reports", deviceLabels),

		boardHashrate: desc("board_hashrate_mhs", "Per-board hashrate in MH/s", boardLabels),
		boardTemp:     desc("board_temp_celsius", "Per-board PCB temperature in degrees Celsius", boardLabels),
		boardChipTemp: desc("board_chip_temp_celsius", "Per-board chip temperature in degrees Celsius", boardLabels),
		boardChips:    desc("board_chips", "Per-board detected chip count", boardLabels),
		boardMissing:  desc("board_missing", "1 when the board slot is unpopulated or unreadable", boardLabels),
		fanSpeed:      desc("fan_speed_rpm", "Per-fan speed in RPM", boardLabels),

		scrapeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scrape_status",
				Help:      "1 when the last collection pass for the device succeeded",
			},
			deviceLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *FleetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hashrate
	ch <- c.expectedRate
	ch <- c.uptime
	ch <- c.isMining
	ch <- c.faultLight
	ch <- c.envTemp
	ch <- c.wattage
	ch <- c.errorCount
	ch <- c.boardHashrate
	ch <- c.boardTemp
	ch <- c.boardChipTemp
	ch <- c.boardChips
	ch <- c.boardMissing
	ch <- c.fanSpeed
	c.scrapeStatus.Describe(ch)
}

// Collect implements prometheus.Collector. Devices are scraped
// concurrently; a device that fails outright only zeroes its own
// scrape_status series.
func (c *FleetCollector) Collect(ch chan<- prometheus.Metric) {
	handles := c.devices()

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h miner.Handle) {
			defer wg.Done()
			c.collectDevice(ch, h)
		}(h)
	}
	wg.Wait()

	c.scrapeStatus.Collect(ch)
}

func (c *FleetCollector) collectDevice(ch chan<- prometheus.Metric, h miner.Handle) {
	host, model := h.Host(), h.Model()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	snap, report, err := h.Collect(ctx)
	if err != nil {
		log.Printf("[exporter] collect %s: %v", host, err)
		c.scrapeStatus.WithLabelValues(host, model).Set(0)
		return
	}
	for _, field := range report.Failed() {
		log.Printf("[exporter] collect %s: field %s: %v", host, field, report[field])
	}

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	boolVal := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	if snap.Hashrate != nil {
		gauge(c.hashrate, *snap.Hashrate, host, model)
	}
	if snap.ExpectedHashrate != nil {
		gauge(c.expectedRate, *snap.ExpectedHashrate, host, model)
	}
	if snap.Uptime != nil {
		gauge(c.uptime, float64(*snap.Uptime), host, model)
	}
	if snap.IsMining != nil {
		gauge(c.isMining, boolVal(*snap.IsMining), host, model)
	}
	if snap.FaultLight != nil {
		gauge(c.faultLight, boolVal(*snap.FaultLight), host, model)
	}
	if snap.EnvironmentTemp != nil {
		gauge(c.envTemp, *snap.EnvironmentTemp, host, model)
	}
	if snap.Wattage != nil {
		gauge(c.wattage, float64(*snap.Wattage), host, model)
	}
	if report.OK(telemetry.FieldErrors) {
		gauge(c.errorCount, float64(len(snap.Errors)), host, model)
	}

	for _, b := range snap.Hashboards {
		slot := strconv.Itoa(b.Slot)
		gauge(c.boardMissing, boolVal(b.Missing), host, model, slot)
		gauge(c.boardChips, float64(b.Chips), host, model, slot)
		if b.Hashrate != nil {
			gauge(c.boardHashrate, *b.Hashrate, host, model, slot)
		}
		if b.Temp != nil {
			gauge(c.boardTemp, *b.Temp, host, model, slot)
		}
		if b.ChipTemp != nil {
			gauge(c.boardChipTemp, *b.ChipTemp, host, model, slot)
		}
	}
	for i, f := range snap.Fans {
		gauge(c.fanSpeed, float64(f.Speed), host, model, strconv.Itoa(i))
	}

	c.scrapeStatus.WithLabelValues(host, model).Set(1)
}

// Ensure FleetCollector implements prometheus.Collector.
var _ prometheus.Collector = (*FleetCollector)(nil)
