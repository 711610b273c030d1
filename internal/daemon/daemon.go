// Package daemon resolves the parsed configuration, builds the root
// handle by wiring every core component together, opens the BLE
// adapter, and runs until the process is signaled.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/nimblehid/hogp/conn"
	"github.com/nimblehid/hogp/diag"
	"github.com/nimblehid/hogp/facade"
	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/hidapi"
	"github.com/nimblehid/hogp/hidcore"
	"github.com/nimblehid/hogp/internal/executor"
	hidlog "github.com/nimblehid/hogp/internal/log"
	"github.com/nimblehid/hogp/internal/registry"
	"github.com/nimblehid/hogp/notify"
	"github.com/nimblehid/hogp/report"
)

// ServeParams is the daemon's plain-struct view of the CLI's Serve
// command, kept free of any import on internal/config so that package
// can import daemon (for Serve.Run) without a cycle.
type ServeParams struct {
	DeviceName          string
	MaxQueuePerLink     int
	ConnectionTimeoutMs int
	DefaultProtocolMode string
	HidInfoFlags        uint8
	Activate            string
}

// Config is the resolved, typed form of ServeParams the daemon runs
// with.
type Config struct {
	DeviceName          string
	MaxQueuePerLink     int
	DefaultProtocolMode byte
	HidInfoFlags        byte
	ConnectingTimeout   time.Duration
	StartupProfile      report.Profile
	HasStartupProfile   bool
}

// Resolve validates and converts ServeParams into a Config.
func Resolve(s ServeParams) (Config, error) {
	mode := gatt.ProtocolModeReport
	if s.DefaultProtocolMode == "boot" {
		mode = gatt.ProtocolModeBoot
	}
	cfg := Config{
		DeviceName:          s.DeviceName,
		MaxQueuePerLink:     s.MaxQueuePerLink,
		DefaultProtocolMode: mode,
		HidInfoFlags:        s.HidInfoFlags,
		ConnectingTimeout:   time.Duration(s.ConnectionTimeoutMs) * time.Millisecond,
	}
	if s.Activate != "" {
		p, ok := registry.ParseProfile(s.Activate)
		if !ok {
			return Config{}, fmt.Errorf("daemon: unknown startup profile %q", s.Activate)
		}
		cfg.StartupProfile = p
		cfg.HasStartupProfile = true
	}
	return cfg, nil
}

// Handle is the running daemon's root: every core component, reachable
// for tests and for a future host-process binding layer.
type Handle struct {
	Adapter   *bluetooth.Adapter
	Registry  *gatt.Registry
	Engine    *notify.Engine
	Machine   *conn.Machine
	Tap       *diag.Tap
	Facade    *facade.Facade
	Activator *facade.Activator
	Client    *hidapi.Client
	Exec      *executor.Executor
}

// Build wires the core together against adapter, without enabling it
// or starting advertising; callers decide when to go live. Every
// mutating entry point (BLE-stack callbacks via the Facade, intent
// calls via the Client) is marshaled onto a single executor goroutine.
func Build(adapter *bluetooth.Adapter, cfg Config, logger *slog.Logger) *Handle {
	tap := diag.New(logger, 256, 256)
	reg := gatt.NewRegistry(cfg.HidInfoFlags, cfg.DefaultProtocolMode)
	machine := conn.NewMachine()
	exec := executor.New(64)

	h := &Handle{
		Adapter:  adapter,
		Registry: reg,
		Machine:  machine,
		Tap:      tap,
		Exec:     exec,
	}

	// The engine needs the facade as its Sender and the facade needs the
	// engine for CCCD/queue state; build the engine first, hand it to the
	// facade, then close the loop through the exported Sender field.
	h.Engine = notify.NewEngine(cfg.MaxQueuePerLink, nil)
	// tinygo's server role tracks CCCD subscriptions internally and never
	// surfaces the descriptor writes, so the engine's own gate would drop
	// every report; the stack refuses delivery to unsubscribed centrals.
	h.Engine.AssumeEnabled = true
	h.Facade = facade.New(adapter, reg, h.Engine, machine, tap)
	h.Facade.Exec = exec
	h.Facade.ConnectingTimeout = cfg.ConnectingTimeout
	h.Engine.Sender = h.Facade
	h.Activator = facade.NewActivator(h.Facade)
	h.Client = hidapi.New(adapter, cfg.DeviceName, h.Activator, h.Facade, machine, h.Engine, tap)
	h.Client.Exec = exec
	return h
}

// Close stops the executor goroutine. Call once Run has returned.
func (h *Handle) Close() {
	h.Exec.Close()
}

// Run enables the adapter, initializes the core, optionally activates a
// startup profile and starts advertising, then blocks until ctx is done.
func (h *Handle) Run(ctx context.Context, cfg Config, rawLogger hidlog.RawLogger) error {
	if err := h.Adapter.Enable(); err != nil {
		return hidcore.New("initialize", hidcore.KindPeripheralNotSupported, err.Error())
	}

	if !h.Client.Initialize() {
		return fmt.Errorf("daemon: core initialize failed")
	}

	if rawLogger != nil {
		reports, cancel := h.Tap.ReportStream()
		defer cancel()
		go func() {
			for rec := range reports {
				rawLogger.Log(rec.Direction == diag.DirectionSent, rec.Bytes)
			}
		}()
	}

	if cfg.HasStartupProfile {
		if !h.Client.Activate(cfg.StartupProfile) {
			return fmt.Errorf("daemon: activate startup profile %s failed", cfg.StartupProfile)
		}
	}

	if !h.Client.StartAdvertising() {
		return fmt.Errorf("daemon: start advertising failed")
	}

	<-ctx.Done()
	_ = h.Client.StopAdvertising()
	return nil
}
