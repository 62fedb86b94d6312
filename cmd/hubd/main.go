package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifyhub/internal/config"
	"notifyhub/internal/hub"
	"notifyhub/internal/logging"
	"notifyhub/internal/metrics"
	"notifyhub/internal/sink"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to config file (YAML)")
		logLevel    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		metricsAddr = flag.String("metrics", "", "Metrics listen address override (empty uses config)")
		printConfig = flag.Bool("print-config", false, "Print effective configuration and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config file %s: %v", *configFile, err)
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = *metricsAddr
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			log.Fatalf("Failed to render config: %v", err)
		}
		fmt.Print(out)
		return
	}

	logging.Init(cfg.Log.Level)
	logger := logging.L()

	var provider metrics.Provider = metrics.Noop{}
	var prom *metrics.Prom
	if cfg.Metrics.Enabled {
		prom = metrics.NewProm()
		provider = prom
	}

	if err := hub.Configure(func() (*hub.Hub, error) {
		return hub.New(hub.Config{
			InitialState: cfg.Hub.InitialState,
			HistorySize:  cfg.Hub.HistorySize,
			Metrics:      provider,
		})
	}); err != nil {
		log.Fatalf("Failed to configure hub: %v", err)
	}

	h, err := hub.Default()
	if err != nil {
		log.Fatalf("Failed to construct hub: %v", err)
	}

	attach := func(s hub.Subscriber) {
		notify := s.Notify
		if cfg.Hub.CallbackTimeout > 0 {
			notify = hub.WithTimeout(notify, cfg.Hub.CallbackTimeout)
		}
		if !h.Subscribe(s.ID(), notify) {
			logger.Warnf("sink %s already attached", s.ID())
		}
	}

	if cfg.Sinks.Console.Enabled {
		attach(sink.NewConsole(""))
	}
	var fileSink *sink.File
	if cfg.Sinks.File.Enabled {
		fileSink, err = sink.NewFile("", cfg.Sinks.File.Path)
		if err != nil {
			log.Fatalf("Failed to open file sink: %v", err)
		}
		attach(fileSink)
	}
	if prom != nil {
		attach(sink.NewMetrics("", prom))
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled && prom != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			logger.Infof("metrics listening on %s", cfg.Metrics.ListenAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	// Each stdin line becomes the new state.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			errs, err := h.SetState(line)
			if err != nil {
				logger.Errorf("set state: %v", err)
				continue
			}
			for _, de := range errs {
				logger.Warnf("delivery error: %v", de)
			}
		}
	}()

	logger.Infof("hubd running, %d sinks attached", h.Len())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Errorf("metrics shutdown: %v", err)
		}
		cancel()
	}
	if fileSink != nil {
		h.Unsubscribe(fileSink.ID())
		if err := fileSink.Close(); err != nil {
			logger.Errorf("close file sink: %v", err)
		}
	}
}
