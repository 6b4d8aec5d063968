// Command zpico-demo is the process wiring around the session engine:
// load configuration, tune GOMAXPROCS, open a session over the
// configured link, optionally start the Kafka bridge, serve Prometheus
// metrics, and shut down cleanly on signal.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/zenoh-pico-go/zpico/bridge/kafkabridge"
	"github.com/zenoh-pico-go/zpico/internal/config"
	"github.com/zenoh-pico-go/zpico/internal/logging"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/wire"
	"github.com/zenoh-pico-go/zpico/pkg/zenoh"
)

func splitBrokers(brokers string) []string {
	var result []string
	for _, b := range strings.Split(brokers, ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides ZPICO_LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{Level: "info"}).Fatal().Err(err).Msg("failed to load configuration")
		return
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cfg.LogConfig(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.StartSystemSampler(ctx, cfg.MetricsInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sched := scheduler.New()
	go sched.Run()
	defer sched.Stop()

	sess, err := zenoh.Open(ctx, cfg, sched, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session")
		return
	}
	logger.Info().Str("zid", sess.ZID().String()).Msg("session open")

	var bridge *kafkabridge.Bridge
	if cfg.KafkaTopic != "" && cfg.KafkaBrokers != "" {
		bridge, err = kafkabridge.New(kafkabridge.Config{
			Brokers:       splitBrokers(cfg.KafkaBrokers),
			ConsumerGroup: cfg.ConsumerGroup,
			Topic:         cfg.KafkaTopic,
			KeyExpr:       cfg.BridgeKeyExpr,
			Logger:        logger.With().Str("component", "kafkabridge").Logger(),
		}, sess)
		if err != nil {
			logger.Error().Err(err).Msg("kafka bridge disabled")
		} else {
			bridge.Start()
		}
	}

	logger.Info().Msg("zpico-demo running")
	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if bridge != nil {
		bridge.Stop()
	}
	_ = sess.Close(wire.CloseReasonGeneric)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
