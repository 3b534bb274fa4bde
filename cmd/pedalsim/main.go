package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"

	"justapengu.in/pedal/internal/config"
	"justapengu.in/pedal/internal/telemetry"
)

var (
	regionDir   string
	regionName  string
	version     uint
	rate        int
	lapTime     time.Duration
	trackLength float64
)

func init() {
	flag.StringVar(&regionDir, "dir", "/dev/shm", "directory the shared memory file is created in")
	flag.StringVar(&regionName, "name", config.DefaultRegionName, "shared memory region name")
	flag.UintVar(&version, "version", 2, "frame version to write (1, 2 or 3)")
	flag.IntVar(&rate, "hz", 50, "frames per second")
	flag.DurationVar(&lapTime, "lap-time", 90*time.Second, "lap time")
	flag.Float64Var(&trackLength, "track-length", 5200, "track length in metres")
}

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if rate <= 0 || lapTime <= 0 || trackLength <= 0 {
		logger.Fatal("hz, lap-time and track-length must be positive")
	}

	path := filepath.Join(regionDir, regionName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)

	if err != nil {
		logger.WithError(err).Fatalf("Could not create region at %s", path)
	}

	defer func() {
		_ = f.Close()

		if err := os.Remove(path); err != nil {
			logger.WithError(err).Warnf("Could not remove %s", path)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Writing version %d frames to %s at %dHz", version, path, rate)

	if err := run(ctx, &frameWriter{f: f}, logger); err != nil {
		logger.WithError(err).Error("Simulator stopped")
		return
	}

	logger.Infof("Stopped. Exiting")
}

func run(ctx context.Context, w *frameWriter, logger logrus.FieldLogger) error {
	interval := time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sim := newLapSim(uint16(version), trackLength, lapTime.Seconds())

	var sequence uint32

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if sim.step(interval.Seconds()) {
				lap := time.Duration(sim.lastLapTime * float64(time.Second)).Round(time.Millisecond)

				logger.Infof("Lap %d completed in %s, %.1fL fuel left", sim.lapNumber-1, durafmt.Parse(lap), sim.fuel)
			}

			sequence++

			frame, err := telemetry.Encode(sim.record(), sequence)

			if err != nil {
				return err
			}

			if err := w.write(frame); err != nil {
				return err
			}
		}
	}
}
