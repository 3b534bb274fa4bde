package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"justapengu.in/pedal/internal/api"
	"justapengu.in/pedal/internal/calculator"
	"justapengu.in/pedal/internal/config"
	"justapengu.in/pedal/internal/scheduler"
	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/snapshot"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "", "config path, defaults and PEDAL_* environment variables are used when empty")
}

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	conf, err := config.Load(configPath)

	if err != nil {
		logger.WithError(err).Fatal("Could not read config")
	}

	level, _ := conf.Level()
	logger.SetLevel(level)

	logger.Infof("Starting pedal, reading shared memory region %q every %s", conf.RegionName, conf.PollInterval())

	adapter := shm.NewAdapter(conf.RegionName,
		shm.WithStaleTimeout(conf.StaleTimeout()),
		shm.WithLogger(logger),
	)

	registry, err := calculator.Default(conf)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise calculators")
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(prometheus.NewGoCollector())

	sched, err := scheduler.New(adapter, snapshot.NewStore(conf.HistoryCapacity()), registry, conf,
		scheduler.WithLogger(logger),
		scheduler.WithRegisterer(metrics),
	)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	if conf.HTTPAddress != "" {
		g.Go(func() error {
			return api.NewHTTP(conf.HTTPAddress, sched, metrics, logger).Listen(ctx)
		})
	}

	g.Go(func() error {
		reportStatus(ctx, sched, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Pipeline stopped")
	}

	logger.Infof("Stopped. Exiting")
}
