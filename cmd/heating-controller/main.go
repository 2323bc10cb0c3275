// Command heating-controller switches a central-heating boiler based on the
// demand reported by smart radiator valves over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Xevi8X/central-heating-controller/internal/config"
	"github.com/Xevi8X/central-heating-controller/internal/controller"
	"github.com/Xevi8X/central-heating-controller/internal/metrics"
	"github.com/Xevi8X/central-heating-controller/internal/mqtt"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
	"github.com/Xevi8X/central-heating-controller/internal/relay"
	"github.com/Xevi8X/central-heating-controller/internal/status"
	"github.com/Xevi8X/central-heating-controller/internal/web"
)

// errUsage signals that the usage text has already been printed.
var errUsage = errors.New("usage")

type options struct {
	broker     string
	switchName string

	configPath     string
	namespace      string
	httpAddr       string
	username       string
	password       string
	update         time.Duration
	refresh        time.Duration
	stale          time.Duration
	countdown      time.Duration
	safeSetpoint   float64
	relayChip      string
	relayPin       int
	relayActiveLow bool
}

func main() {
	o, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(2)
	}

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options

	fs := pflag.NewFlagSet("heating-controller", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "config.yaml", "path to the YAML configuration (created if missing)")
	fs.StringVar(&o.namespace, "namespace", mqtt.DefaultNamespace, "MQTT root topic of the valves and the switch")
	fs.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	fs.StringVar(&o.username, "username", "", "MQTT username")
	fs.StringVar(&o.password, "password", "", "MQTT password")
	fs.DurationVar(&o.update, "update-interval", controller.DefaultUpdateInterval, "how often heat demand is recomputed and sent")
	fs.DurationVar(&o.refresh, "refresh-interval", controller.DefaultRefreshInterval, "how often every valve is sent a keep-alive")
	fs.DurationVar(&o.stale, "stale", radiator.DefaultStaleThreshold, "drop radiators not heard from for this long")
	fs.DurationVar(&o.countdown, "countdown", controller.DefaultCountdown, "switch auto-off delay sent with every demand")
	fs.Float64Var(&o.safeSetpoint, "safe-setpoint", radiator.DefaultSafeSetpoint, "setpoint pushed to valves reporting implausible temperatures")
	fs.StringVar(&o.relayChip, "relay-chip", relay.DefaultChip, "GPIO chip of the local relay")
	fs.IntVar(&o.relayPin, "relay-pin", -1, "GPIO line driving a local relay that mirrors demand (-1 to disable)")
	fs.BoolVar(&o.relayActiveLow, "relay-active-low", true, "energize the relay by driving the line low")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: heating-controller [flags] <broker_address> <switch_name>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return o, errUsage
	}
	if o.update <= 0 || o.refresh <= 0 {
		return o, fmt.Errorf("intervals must be positive")
	}
	if o.stale <= 0 {
		return o, fmt.Errorf("--stale must be positive")
	}
	if o.countdown < time.Second {
		return o, fmt.Errorf("--countdown must be at least 1s")
	}
	if o.safeSetpoint < radiator.MinTemperature || o.safeSetpoint > radiator.MaxTemperature {
		return o, fmt.Errorf("--safe-setpoint must be within %.0f-%.0f", radiator.MinTemperature, radiator.MaxTemperature)
	}

	o.broker = normalizeBroker(fs.Arg(0))
	o.switchName = fs.Arg(1)
	return o, nil
}

// normalizeBroker accepts a bare host, host:port or full URL and returns a
// URL paho can dial.
func normalizeBroker(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "1883")
	}
	return "tcp://" + addr
}

func run(o options) error {
	store, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m := metrics.New()
	history := status.NewHistory(status.DefaultHistorySize, nil)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:          o.broker,
		Namespace:       o.namespace,
		SwitchName:      o.switchName,
		HTTPAddr:        o.httpAddr,
		UpdateInterval:  o.update,
		RefreshInterval: o.refresh,
		StaleThreshold:  o.stale,
	})

	var sw relay.Switch
	if o.relayPin >= 0 {
		gs, err := relay.NewGPIOSwitch(o.relayChip, o.relayPin, o.relayActiveLow)
		if err != nil {
			return fmt.Errorf("init relay: %w", err)
		}
		defer gs.Close()
		sw = gs
		log.Printf("relay on %s line %d", o.relayChip, o.relayPin)
	}

	// Messages arriving before the controller exists are dropped.
	var ctl atomic.Pointer[controller.Controller]
	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:    o.broker,
		Username:  o.username,
		Password:  o.password,
		Namespace: o.namespace,
		OnConnectionChange: func(connected bool) {
			tracker.SetMQTTConnected(connected)
			m.SetMQTTConnected(connected)
		},
	}, func(topic string, payload []byte) {
		if c := ctl.Load(); c != nil {
			c.HandleMessage(topic, payload)
		}
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	ctl.Store(controller.New(controller.Options{
		Namespace:       o.namespace,
		SwitchName:      o.switchName,
		UpdateInterval:  o.update,
		RefreshInterval: o.refresh,
		StaleThreshold:  o.stale,
		Countdown:       o.countdown,
		SafeSetpoint:    o.safeSetpoint,
	}, controller.Deps{
		Config:    store,
		Publisher: client,
		History:   history,
		Tracker:   tracker,
		Relay:     sw,
		Metrics:   m,
	}))

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, history, tracker, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: broker=%s switch=%s namespace=%s config=%s", o.broker, o.switchName, o.namespace, store.Path())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctl.Load(), sigCh)
}

// runLoop starts the control cycles and blocks until a signal arrives, then
// switches the boiler off.
func runLoop(ctl *controller.Controller, sig <-chan os.Signal) error {
	if err := ctl.Start(); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	s := <-sig
	log.Printf("received %v, shutting down", s)
	ctl.SwitchOff()
	return nil
}
