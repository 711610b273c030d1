// Package config declares hogpd's CLI surface: an alecthomas/kong
// command tree with JSON/YAML/TOML config-file layering, where the
// selected command's Run(logger, rawLogger) method is invoked by Kong
// with the bound logging sinks.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tinygo.org/x/bluetooth"

	"github.com/nimblehid/hogp/internal/daemon"
	hidlog "github.com/nimblehid/hogp/internal/log"
)

// LogConfig groups the logging flags, embedded with prefix "log.".
type LogConfig struct {
	Level   string `help:"Log level (error, warn, info, debug, verbose)" default:"info" env:"HOGPD_LOG_LEVEL"`
	File    string `help:"Write logs to this file in addition to stderr" type:"path"`
	RawFile string `help:"Write hex dumps of every HID report to this file" type:"path"`
}

// CLI is the root command structure Kong parses hogpd's flags/env/config
// file into.
type CLI struct {
	Serve  Serve         `cmd:"" default:"1" help:"Run the BLE HID peripheral daemon"`
	Config ConfigCommand `cmd:"" help:"Configuration file utilities"`

	Log LogConfig `embed:"" prefix:"log."`
}

// Serve is the default subcommand: it brings up the BLE
// adapter and runs the core until signaled.
type Serve struct {
	DeviceName          string `help:"Local name advertised to centrals" default:"hogpd" env:"HOGPD_DEVICE_NAME"`
	MaxQueuePerLink     int    `help:"Bound on the per-link notification queue" default:"32" env:"HOGPD_MAX_QUEUE_PER_LINK"`
	ConnectionTimeoutMs int    `help:"Connecting-state timeout in milliseconds" default:"30000" env:"HOGPD_CONNECTION_TIMEOUT_MS"`
	DefaultProtocolMode string `help:"Protocol Mode reset onto every new link (boot, report)" default:"report" enum:"boot,report" env:"HOGPD_DEFAULT_PROTOCOL_MODE"`
	HidInfoFlags        uint8  `help:"HID Information characteristic flags byte" default:"3" env:"HOGPD_HID_INFO_FLAGS"`
	Activate            string `help:"Profile to activate at startup (mouse, keyboard, consumer, composite); empty activates none" enum:",mouse,keyboard,consumer,composite" default:""`
}

// Run is called by Kong when the serve command is selected: it resolves
// the daemon's config, builds the core against the system's default BLE
// adapter, and blocks until the process is signaled.
func (s *Serve) Run(logger *slog.Logger, rawLogger hidlog.RawLogger) error {
	cfg, err := daemon.Resolve(daemon.ServeParams{
		DeviceName:          s.DeviceName,
		MaxQueuePerLink:     s.MaxQueuePerLink,
		ConnectionTimeoutMs: s.ConnectionTimeoutMs,
		DefaultProtocolMode: s.DefaultProtocolMode,
		HidInfoFlags:        s.HidInfoFlags,
		Activate:            s.Activate,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	adapter := bluetooth.DefaultAdapter
	h := daemon.Build(adapter, cfg, logger)
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return h.Run(ctx, cfg, rawLogger)
}
