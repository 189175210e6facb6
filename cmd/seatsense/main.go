package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/banshee-data/seatsense/internal/config"
	"github.com/banshee-data/seatsense/internal/display"
	"github.com/banshee-data/seatsense/internal/haptics"
	"github.com/banshee-data/seatsense/internal/mlx"
	"github.com/banshee-data/seatsense/internal/occupancy"
	"github.com/banshee-data/seatsense/internal/pipeline"
	"github.com/banshee-data/seatsense/internal/timeutil"
	"github.com/banshee-data/seatsense/internal/transport"
	"github.com/banshee-data/seatsense/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (defaults apply if empty)")
	devMode     = flag.Bool("dev", false, "Run in dev mode against a captured fixture instead of hardware")
	fixtures    = flag.String("fixtures", "fixtures.bin", "Raw frame capture fed to the pipeline in dev mode")
	portPath    = flag.String("port", "", "Serial port override (ignored in dev mode)")
	snapshotDir = flag.String("snapshot-dir", "", "Snapshot output directory override")
	pwmDir      = flag.String("pwm", "", "Sysfs PWM channel directory for the vibration motor (logs commands if empty)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("seatsense %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	checksum, err := mlx.ChecksumByName(cfg.GetChecksumAlgorithm())
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	layout := mlx.Layout{
		Rows:     cfg.GetGridRows(),
		Cols:     cfg.GetGridCols(),
		WordSize: cfg.GetWordSize(),
	}

	port, err := openPort(cfg, layout)
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	defer port.Close()

	var actuator haptics.Actuator = haptics.LogActuator{}
	if *pwmDir != "" {
		actuator, err = haptics.NewSysfsActuator(*pwmDir, 0)
		if err != nil {
			log.Fatalf("haptics: %v", err)
		}
	}

	sessionID := uuid.New().String()
	sink, err := buildSink(cfg, sessionID)
	if err != nil {
		log.Fatalf("display: %v", err)
	}

	pipe := pipeline.New(
		port,
		mlx.NewAssembler(layout, checksum),
		mlx.NewMapper(layout, cfg.GetTempScale(), cfg.GetTempOffset()),
		occupancy.NewDetector(
			cfg.GetOccupiedTempDelta(),
			cfg.GetMinOccupiedPixels(),
			cfg.GetHysteresisFrames(),
			cfg.GetLossThreshold(),
		),
		haptics.NewController(actuator, timeutil.RealClock{}, cfg.GetMinIntensity(), cfg.GetRepulseInterval()),
		sink,
		sessionID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pipe.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("pipeline: %v", err)
	}
}

// loadConfig merges, in increasing precedence: file config, environment
// overrides, command-line flags.
func loadConfig() (*config.Config, error) {
	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnvOverrides()
	if *portPath != "" {
		cfg.SerialPort = portPath
	}
	if *snapshotDir != "" {
		cfg.SnapshotDir = snapshotDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPort returns the sensor byte source: a real serial port, or in dev
// mode a scripted port replaying a raw capture in frame-sized chunks.
func openPort(cfg *config.Config, layout mlx.Layout) (transport.BytePort, error) {
	if *devMode {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixtures file: %w", err)
		}
		port := transport.NewTestablePort()
		size := layout.FrameSize()
		for len(data) > 0 {
			n := size
			if n > len(data) {
				n = len(data)
			}
			port.AddChunk(data[:n])
			data = data[n:]
		}
		log.Printf("dev mode: replaying %s", *fixtures)
		return port, nil
	}

	mode := transport.DefaultPortMode()
	mode.BaudRate = cfg.GetBaudRate()
	port, err := transport.OpenSerial(cfg.GetSerialPort(), mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(cfg.GetReadTimeout()); err != nil {
		port.Close()
		return nil, err
	}
	log.Printf("opened %s at %d baud", cfg.GetSerialPort(), cfg.GetBaudRate())
	return port, nil
}

// buildSink assembles the display sinks for this run. Without a snapshot
// directory there is nothing to render to.
func buildSink(cfg *config.Config, sessionID string) (display.Sink, error) {
	dir := cfg.GetSnapshotDir()
	if dir == "" {
		return display.Noop{}, nil
	}
	heatmap, err := display.NewHeatmapWriter(dir, cfg.GetDisplayUnits(), sessionID)
	if err != nil {
		return nil, err
	}
	chart, err := display.NewChartWriter(dir, cfg.GetDisplayUnits(), sessionID)
	if err != nil {
		return nil, err
	}
	return display.Multi{heatmap, chart}, nil
}
