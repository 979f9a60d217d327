// gesture: wearable gesture capture service.
// Accepts sensor streams from watch bridges, samples them into fixed-length
// windows and classifies each window with a remote model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-gesture/internal/config"
	"github.com/teslashibe/go-gesture/internal/log"
	"github.com/teslashibe/go-gesture/internal/observe"
	"github.com/teslashibe/go-gesture/pkg/capture"
	"github.com/teslashibe/go-gesture/pkg/devicehub"
	"github.com/teslashibe/go-gesture/pkg/inference"
	"github.com/teslashibe/go-gesture/pkg/protocol"
	"github.com/teslashibe/go-gesture/pkg/recorder"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/web"
	"github.com/teslashibe/go-gesture/pkg/window"
)

var version = "0.1.0"

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	port       = flag.Int("port", 0, "HTTP server port (overrides config)")
	endpoint   = flag.String("endpoint", "", "Classifier /predict URL (overrides config)")
	recordDir  = flag.String("record", "", "Write completed windows as CSV into this directory")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	debug      = flag.Bool("debug", false, "Enable request logging")
	hold       = flag.Bool("hold", false, "Ignore device events during the cooldown")
	quiet      = flag.Bool("quiet", false, "Do not print results to stdout")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Init(cfg.Log.Level)
	logger := log.L()

	if err := run(cfg); err != nil {
		logger.Error("gesture exited", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers CLI flags over the file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *endpoint != "" {
		cfg.Classifier.EndpointURL = *endpoint
	}
	if *recordDir != "" {
		cfg.Recorder.Enabled = true
		cfg.Recorder.Dir = *recordDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *debug {
		cfg.Server.Debug = true
	}
	if *hold {
		cfg.Sampling.HoldDuringCooldown = true
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config) error {
	logger := log.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("metrics provider: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(sctx)
	}()
	metrics := observe.DefaultMetrics()

	classifier, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	defer classifier.Close()

	hctx, cancel := context.WithTimeout(ctx, cfg.Classifier.RequestTimeout())
	if err := classifier.Health(hctx); err != nil {
		logger.Warn("classifier not reachable yet; windows will report send errors until it is",
			"endpoints", cfg.Classifier.Endpoints(), "error", err)
	}
	cancel()

	dashboard := web.NewServer(web.Config{
		Port:         cfg.Server.Port,
		WindowLength: cfg.Sampling.WindowLength,
		StaticDir:    cfg.Server.StaticDir,
		Debug:        cfg.Server.Debug,
		Version:      version,
	}, log.L())

	sinks := capture.MultiSink{dashboard}
	if !*quiet {
		sinks = append(sinks, capture.NewTextSink(os.Stdout, cfg.Sampling.WindowLength))
	}

	engine, err := capture.New(capture.Config{
		SamplePeriod:       cfg.Sampling.SamplePeriod(),
		WindowLength:       cfg.Sampling.WindowLength,
		Cooldown:           cfg.Sampling.Cooldown(),
		RequestTimeout:     cfg.Classifier.RequestTimeout(),
		EventBuffer:        cfg.Sampling.EventBuffer,
		HoldDuringCooldown: cfg.Sampling.HoldDuringCooldown,
	}, classifier, sinks,
		capture.WithLogger(log.L()),
		capture.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	devices := devicehub.NewHub(log.L(), metrics)
	devices.RegisterRoutes(dashboard.App())
	devices.RegisterAPIRoutes(dashboard.App().Group("/api"))
	devices.OnEvent(func(deviceID string, ev sensor.Event) {
		if !engine.Submit(ev) {
			logger.Debug("event queue full", "device", deviceID, "channel", ev.Channel)
		}
	})

	dashboard.SetStatusSource(engine.Status)
	engine.OnResult(dashboard.RecordResult)
	engine.OnResult(func(r capture.Result) {
		st := engine.Status()
		status := protocol.StatusData{
			State:      st.State,
			Buffered:   st.Buffered,
			Windows:    st.Windows,
			Prediction: r.Text,
		}
		go func() {
			if err := devices.BroadcastStatus(status); err != nil {
				logger.Warn("device status broadcast failed", "error", err)
			}
		}()
	})

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Recorder.Enabled {
		rec, path, err := recorder.Open(cfg.Recorder.Dir, cfg.Recorder.BufferSizeKB*1024, log.L())
		if err != nil {
			return err
		}
		rec.SetMetrics(metrics)
		engine.OnWindow(func(w *window.Window) { rec.Submit(w) })
		logger.Info("recording windows", "path", path)
		g.Go(func() error { return rec.Run(ctx) })
	}

	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return dashboard.Run(ctx) })

	logger.Info("gesture started",
		"version", version,
		"port", cfg.Server.Port,
		"endpoints", cfg.Classifier.Endpoints(),
		"window_length", cfg.Sampling.WindowLength,
	)

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// newClassifier builds a client per endpoint; fallbacks form a chain.
func newClassifier(cfg *config.Config) (inference.Classifier, error) {
	var clients []inference.Classifier
	for _, ep := range cfg.Classifier.Endpoints() {
		c, err := inference.NewClient(
			inference.WithEndpoint(ep),
			inference.WithTimeout(cfg.Classifier.RequestTimeout()),
			inference.WithLogger(log.Component("inference")),
		)
		if err != nil {
			return nil, fmt.Errorf("classifier %s: %w", ep, err)
		}
		clients = append(clients, c)
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return inference.NewChainWithLogger(log.Component("inference"), clients...)
}
